package admin

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
	"github.com/pribylovaa/go-telemed/mocks"
)

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	return New(st), st, ctrl
}

func TestListUsers_ClampsLimit_AndValidatesRole(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().ListUsers(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f storage.UserFilter) ([]models.User, error) {
			require.EqualValues(t, 50, f.Limit)
			return nil, nil
		})

	_, err := svc.ListUsers(context.Background(), storage.UserFilter{Limit: -1})
	require.NoError(t, err)

	badRole := models.Role("SUPERUSUARIO")
	_, err = svc.ListUsers(context.Background(), storage.UserFilter{Role: &badRole})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestSetActive_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	st.EXPECT().SetActive(gomock.Any(), userID, false).
		Return(&models.User{ID: userID, Active: false}, nil)

	user, err := svc.SetActive(context.Background(), uuid.New(), userID, false)
	require.NoError(t, err)
	require.False(t, user.Active)
}

func TestSetActive_SelfRejected(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	_, err := svc.SetActive(context.Background(), id, id, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSelfChange)
}

func TestSetRole_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	st.EXPECT().SetRole(gomock.Any(), userID, models.RoleAdmin).
		Return(&models.User{ID: userID, Role: models.RoleAdmin}, nil)

	user, err := svc.SetRole(context.Background(), uuid.New(), userID, models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, user.Role)
}

func TestSetRole_InvalidRole_AndSelf(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.SetRole(context.Background(), uuid.New(), uuid.New(), "JEFE")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRole)

	id := uuid.New()
	_, err = svc.SetRole(context.Background(), id, id, models.RolePatient)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSelfChange)
}

func TestSetRole_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().SetRole(gomock.Any(), gomock.Any(), models.RoleDoctor).
		Return(nil, storage.ErrNotFound)

	_, err := svc.SetRole(context.Background(), uuid.New(), uuid.New(), models.RoleDoctor)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserNotFound)
}
