// session — наблюдаемый контейнер состояния сессии для фронтендов SDK.
//
// Контейнер не глобальный: сервис API передаётся явно, переходы между
// состояниями типизированы, поэтому четыре состояния (Idle / Loading /
// Authenticated / Error) тестируются независимо от транспорта.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pribylovaa/go-telemed/client"
)

// Status — фаза жизненного цикла сессии.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// State — снимок состояния сессии, отдаваемый подписчикам.
type State struct {
	Status          Status
	User            *client.User
	IsAuthenticated bool
	IsLoading       bool
	// Err заполняется только отказами Login/Register; отказ FetchProfile
	// возвращается вызывающему, не задерживаясь в состоянии.
	Err string
}

// Service — операции API, нужные контейнеру. Реализуется *client.Client.
type Service interface {
	Login(ctx context.Context, email, password string) (*client.User, error)
	Register(ctx context.Context, p client.RegisterParams) (*client.User, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context) (*client.User, error)
	AccessToken() string
}

// Persister хранит снимок состояния между перезапусками приложения.
type Persister interface {
	SaveSnapshot(data []byte) error
	LoadSnapshot() ([]byte, bool, error)
}

// Store — контейнер состояния с подписчиками.
type Store struct {
	svc       Service
	persister Persister

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New создаёт контейнер в состоянии Idle.
func New(svc Service, persister Persister) *Store {
	return &Store{
		svc:       svc,
		persister: persister,
		state:     State{Status: StatusIdle},
		subs:      make(map[int]func(State)),
	}
}

// State возвращает текущий снимок.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe регистрирует наблюдателя; возвращаемая функция отписывает.
// Наблюдатель сразу получает текущее состояние.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Login: Loading (с очисткой ошибки) -> Authenticated либо Error.
// Ошибка и записывается в состояние, и возвращается вызывающему.
func (s *Store) Login(ctx context.Context, email, password string) error {
	const op = "session.Login"

	s.setState(State{Status: StatusLoading, IsLoading: true})

	user, err := s.svc.Login(ctx, email, password)
	if err != nil {
		s.setState(State{Status: StatusError, Err: err.Error()})
		return fmt.Errorf("%s: %w", op, err)
	}

	s.setState(State{Status: StatusAuthenticated, User: user, IsAuthenticated: true})
	return nil
}

// Register — та же схема переходов, что и Login.
func (s *Store) Register(ctx context.Context, p client.RegisterParams) error {
	const op = "session.Register"

	s.setState(State{Status: StatusLoading, IsLoading: true})

	user, err := s.svc.Register(ctx, p)
	if err != nil {
		s.setState(State{Status: StatusError, Err: err.Error()})
		return fmt.Errorf("%s: %w", op, err)
	}

	s.setState(State{Status: StatusAuthenticated, User: user, IsAuthenticated: true})
	return nil
}

// Logout всегда приводит к Idle — даже если сервер отказал.
func (s *Store) Logout(ctx context.Context) error {
	const op = "session.Logout"

	err := s.svc.Logout(ctx)
	s.setState(State{Status: StatusIdle})

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FetchProfile восстанавливает сессию по сохранённому токену.
// Без токена — Idle без единого сетевого вызова. Отказ сети/сервера
// переводит в Idle и возвращается вызывающему, но общее поле ошибки
// не заполняет: это фоновое восстановление, а не действие пользователя.
func (s *Store) FetchProfile(ctx context.Context) error {
	const op = "session.FetchProfile"

	if s.svc.AccessToken() == "" {
		s.setState(State{Status: StatusIdle})
		return nil
	}

	user, err := s.svc.GetProfile(ctx)
	if err != nil {
		s.setState(State{Status: StatusIdle})
		return fmt.Errorf("%s: %w", op, err)
	}

	s.setState(State{Status: StatusAuthenticated, User: user, IsAuthenticated: true})
	return nil
}

// snapshot — переживающая перезапуск часть состояния: только user и
// isAuthenticated. isLoading и error при регидрации сбрасываются.
type snapshot struct {
	User            *client.User `json:"user,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// Rehydrate восстанавливает состояние из снимка.
func (s *Store) Rehydrate() error {
	const op = "session.Rehydrate"

	if s.persister == nil {
		return nil
	}

	data, ok, err := s.persister.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	next := State{Status: StatusIdle}
	if snap.IsAuthenticated {
		next = State{Status: StatusAuthenticated, User: snap.User, IsAuthenticated: true}
	}
	s.setState(next)

	return nil
}

// setState фиксирует переход, сохраняет снимок и оповещает подписчиков.
func (s *Store) setState(next State) {
	s.mu.Lock()
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if s.persister != nil {
		data, err := json.Marshal(snapshot{User: next.User, IsAuthenticated: next.IsAuthenticated})
		if err == nil {
			_ = s.persister.SaveSnapshot(data)
		}
	}

	for _, fn := range subs {
		fn(next)
	}
}
