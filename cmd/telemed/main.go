// telemed — консольный клиент телемедицинского API поверх SDK client/.
//
// Подкоманды: login, register, logout, perfil, medicos, citas, reservar,
// admin. Токены хранятся в системном keyring, флаг -file-store
// переключает на JSON-файл в пользовательском конфиг-каталоге.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pribylovaa/go-telemed/client"
	"github.com/pribylovaa/go-telemed/client/booking"
	"github.com/pribylovaa/go-telemed/client/tokenstore"
)

const defaultBaseURL = "http://localhost:50070"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("telemed", flag.ExitOnError)
	baseURL := global.String("url", envOr("TELEMED_URL", defaultBaseURL), "API base URL")
	fileStore := global.Bool("file-store", false, "store tokens in a config file instead of the system keyring")
	global.Usage = usage
	_ = global.Parse(args)

	rest := global.Args()
	if len(rest) == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	store, err := pickStore(*fileStore)
	if err != nil {
		return err
	}

	c := client.New(client.Options{
		BaseURL: *baseURL,
		Store:   store,
		OnSessionExpired: func() {
			fmt.Fprintln(os.Stderr, "la sesión expiró, inicia sesión de nuevo: telemed login")
		},
	})

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, c, cmdArgs)
	case "register":
		return cmdRegister(ctx, c, cmdArgs)
	case "logout":
		return c.Logout(ctx)
	case "perfil":
		return cmdProfile(ctx, c, cmdArgs)
	case "medicos":
		return cmdDoctors(ctx, c, cmdArgs)
	case "citas":
		return cmdAppointments(ctx, c, cmdArgs)
	case "reservar":
		return cmdBook(ctx, c, cmdArgs)
	case "admin":
		return cmdAdmin(ctx, c, cmdArgs)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: telemed [-url URL] [-file-store] <command>

commands:
  login      -correo -contrasena
  register   -correo -contrasena -nombre -apellido [-rol] [-especialidad]
  logout
  perfil     [-nombre] [-apellido] [-telefono]
  medicos    [-resenas ID] [-horarios ID -fecha YYYY-MM-DD]
  citas      [-cancelar ID] [-completar ID] [-agenda -fecha YYYY-MM-DD]
  reservar   -medico ID -fecha YYYY-MM-DD -hora HH:MM [-tipo] [-motivo]
  admin      [-usuarios] [-rol ROL] [-activar ID] [-desactivar ID] [-auditoria]`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func pickStore(file bool) (tokenstore.Store, error) {
	if file {
		return tokenstore.NewFileDefault()
	}
	return tokenstore.NewKeyring(), nil
}

func cmdLogin(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("correo", "", "email")
	password := fs.String("contrasena", "", "password")
	_ = fs.Parse(args)

	user, err := c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Printf("sesión iniciada: %s %s (%s)\n", user.FirstName, user.LastName, user.Role)
	return nil
}

func cmdRegister(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("correo", "", "email")
	password := fs.String("contrasena", "", "password")
	firstName := fs.String("nombre", "", "first name")
	lastName := fs.String("apellido", "", "last name")
	phone := fs.String("telefono", "", "phone")
	role := fs.String("rol", "PACIENTE", "PACIENTE or MEDICO")
	specialty := fs.String("especialidad", "", "specialty (MEDICO)")
	_ = fs.Parse(args)

	user, err := c.Register(ctx, client.RegisterParams{
		Email:     *email,
		Password:  *password,
		FirstName: *firstName,
		LastName:  *lastName,
		Phone:     *phone,
		Role:      *role,
		Specialty: *specialty,
	})
	if err != nil {
		return err
	}

	fmt.Printf("cuenta creada: %s (%s)\n", user.Email, user.Role)
	return nil
}

func cmdProfile(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("perfil", flag.ExitOnError)
	firstName := fs.String("nombre", "", "new first name")
	lastName := fs.String("apellido", "", "new last name")
	phone := fs.String("telefono", "", "new phone")
	_ = fs.Parse(args)

	var p client.UpdateProfileParams
	changed := false
	if *firstName != "" {
		p.FirstName, changed = firstName, true
	}
	if *lastName != "" {
		p.LastName, changed = lastName, true
	}
	if *phone != "" {
		p.Phone, changed = phone, true
	}

	var user *client.User
	var err error
	if changed {
		user, err = c.UpdateProfile(ctx, p)
	} else {
		user, err = c.GetProfile(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s <%s>\nrol: %s", user.FirstName, user.LastName, user.Email, user.Role)
	if user.Specialty != "" {
		fmt.Printf(" (%s)", user.Specialty)
	}
	fmt.Println()
	return nil
}

func cmdDoctors(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("medicos", flag.ExitOnError)
	reviewsOf := fs.String("resenas", "", "doctor id: show reviews")
	slotsOf := fs.String("horarios", "", "doctor id: show free slots")
	date := fs.String("fecha", time.Now().Format("2006-01-02"), "day for -horarios")
	_ = fs.Parse(args)

	switch {
	case *reviewsOf != "":
		page, err := c.DoctorReviews(ctx, *reviewsOf, "", 0)
		if err != nil {
			return err
		}
		fmt.Printf("calificación %.1f (%d reseñas)\n", page.Rating, page.Total)
		for _, rv := range page.Items {
			fmt.Printf("  %d/5 %s — %s\n", rv.Rating, rv.PatientName, rv.Comment)
		}
		return nil

	case *slotsOf != "":
		day, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return err
		}
		slots, err := c.DoctorSlots(ctx, *slotsOf, day)
		if err != nil {
			return err
		}
		for _, s := range slots {
			fmt.Println(" ", s.Format("15:04"))
		}
		return nil

	default:
		doctors, err := c.Doctors(ctx)
		if err != nil {
			return err
		}
		for _, d := range doctors {
			fmt.Printf("%s  %s %s — %s\n", d.ID, d.FirstName, d.LastName, d.Specialty)
		}
		return nil
	}
}

func cmdAppointments(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("citas", flag.ExitOnError)
	cancelID := fs.String("cancelar", "", "appointment id to cancel")
	completeID := fs.String("completar", "", "appointment id to complete (doctor)")
	agenda := fs.Bool("agenda", false, "show doctor agenda")
	date := fs.String("fecha", time.Now().Format("2006-01-02"), "day for -agenda")
	_ = fs.Parse(args)

	switch {
	case *cancelID != "":
		appt, err := c.CancelAppointment(ctx, *cancelID)
		if err != nil {
			return err
		}
		fmt.Printf("cita %s: %s\n", appt.ID, appt.Status)
		return nil

	case *completeID != "":
		appt, err := c.CompleteAppointment(ctx, *completeID)
		if err != nil {
			return err
		}
		fmt.Printf("cita %s: %s\n", appt.ID, appt.Status)
		return nil

	case *agenda:
		day, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return err
		}
		items, err := c.Agenda(ctx, day)
		if err != nil {
			return err
		}
		printAppointments(items)
		return nil

	default:
		items, err := c.MyAppointments(ctx)
		if err != nil {
			return err
		}
		printAppointments(items)
		return nil
	}
}

func printAppointments(items []client.Appointment) {
	for _, a := range items {
		fmt.Printf("%s  %s  %s  %s\n", a.ID, a.StartsAt, a.Type, a.Status)
	}
}

// cmdBook прогоняет мастер записи целиком из флагов.
func cmdBook(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("reservar", flag.ExitOnError)
	doctorID := fs.String("medico", "", "doctor id")
	date := fs.String("fecha", "", "day YYYY-MM-DD")
	hour := fs.String("hora", "", "time HH:MM")
	consultType := fs.String("tipo", booking.ConsultVideo, "VIDEOCONSULTA or PRESENCIAL")
	reason := fs.String("motivo", "", "reason")
	_ = fs.Parse(args)

	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return fmt.Errorf("fecha: %w", err)
	}
	clock, err := time.Parse("15:04", *hour)
	if err != nil {
		return fmt.Errorf("hora: %w", err)
	}
	slot := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)

	w := booking.NewWizard(c)
	if err := w.SelectDoctor(*doctorID); err != nil {
		return err
	}
	if err := w.SelectDate(day); err != nil {
		return err
	}
	if err := w.SelectSlot(slot, strings.ToUpper(*consultType), *reason); err != nil {
		return err
	}

	appt, err := w.Confirm(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("cita confirmada: %s el %s\n", appt.ID, appt.StartsAt)
	return nil
}

func cmdAdmin(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	listUsers := fs.Bool("usuarios", false, "list users")
	role := fs.String("rol", "", "role filter for -usuarios")
	activate := fs.String("activar", "", "user id to activate")
	deactivate := fs.String("desactivar", "", "user id to deactivate")
	auditLog := fs.Bool("auditoria", false, "show audit log")
	_ = fs.Parse(args)

	boolPtr := func(v bool) *bool { return &v }

	switch {
	case *activate != "":
		user, err := c.AdminPatchUser(ctx, *activate, client.AdminPatchUserParams{Active: boolPtr(true)})
		if err != nil {
			return err
		}
		fmt.Printf("%s: activo=%v\n", user.Email, user.Active)
		return nil

	case *deactivate != "":
		user, err := c.AdminPatchUser(ctx, *deactivate, client.AdminPatchUserParams{Active: boolPtr(false)})
		if err != nil {
			return err
		}
		fmt.Printf("%s: activo=%v\n", user.Email, user.Active)
		return nil

	case *auditLog:
		events, err := c.AdminAudit(ctx, "", 0)
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("%s  %-28s %s %s\n", e.CreatedAt, e.Action, e.ActorEmail, e.Detail)
		}
		return nil

	case *listUsers:
		users, err := c.AdminListUsers(ctx, *role, 0, 0)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Printf("%s  %-10s activo=%-5v %s\n", u.ID, u.Role, u.Active, u.Email)
		}
		return nil

	default:
		return fmt.Errorf("admin: specify one of -usuarios, -activar, -desactivar, -auditoria")
	}
}
