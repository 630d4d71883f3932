package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
	"github.com/pribylovaa/go-telemed/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "telemed",
		Audience:        []string{"telemed-web"},
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func patientParams() RegisterParams {
	return RegisterParams{
		Email:     "User@Clinica.mx",
		Password:  "Abcdef1!",
		FirstName: "Ana",
		LastName:  "Lopez",
		Phone:     "+52 55 0000 0000",
		Role:      models.RolePatient,
	}
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	norm := "user@clinica.mx"

	st.EXPECT().UserByEmail(gomock.Any(), norm).Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	user, tp, err := svc.Register(ctx, patientParams())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, norm, user.Email)
	require.Equal(t, models.RolePatient, user.Role)
	require.True(t, user.Active)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)

	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)
}

func TestRegister_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	p := patientParams()
	p.Email = "not-an-email"

	_, _, err := svc.Register(context.Background(), p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegister_WeakOrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	p := patientParams()
	p.Password = ""
	_, _, err := svc.Register(context.Background(), p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyPassword)

	p.Password = "short"
	_, _, err = svc.Register(context.Background(), p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	p := patientParams()
	p.Role = models.RoleAdmin

	_, _, err := svc.Register(context.Background(), p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegister_DoctorWithoutSpecialty(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	p := patientParams()
	p.Role = models.RoleDoctor
	p.Specialty = "  "

	_, _, err := svc.Register(context.Background(), p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSpecialtyRequired)
}

func TestRegister_EmailAlreadyExists_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Если UserByEmail вернул пользователя (err == nil) — email занят.
	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").
		Return(&models.User{ID: uuid.New(), Email: "user@clinica.mx"}, nil)

	_, _, err := svc.Register(context.Background(), patientParams())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_SaveUserAlreadyExists_MapsToEmailTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists)

	_, _, err := svc.Register(context.Background(), patientParams())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@clinica.mx"
	pw := "Abcdef1!"
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RolePatient,
		Active:       true,
	}

	st.EXPECT().UserByEmail(gomock.Any(), email).Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	got, tp, err := svc.Login(ctx, email, pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
}

func TestLogin_InvalidEmail_OrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.Login(context.Background(), "bad", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "user@clinica.mx", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UserNotFound_OrWrongPassword(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").
		Return(nil, storage.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "user@clinica.mx", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@clinica.mx",
		PasswordHash: mustHashPW(t, "Other1!pass"),
		Active:       true,
	}
	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").Return(user, nil)

	_, _, err = svc.Login(context.Background(), "user@clinica.mx", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@clinica.mx",
		PasswordHash: mustHashPW(t, "Abcdef1!"),
		Active:       false,
	}
	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").Return(user, nil)

	_, _, err := svc.Login(context.Background(), "user@clinica.mx", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestLogout_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(true, nil)

	require.NoError(t, svc.Logout(context.Background(), "some-refresh-token"))
}

func TestLogout_AlreadyRevoked(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(false, nil)

	err := svc.Logout(context.Background(), "some-refresh-token")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogout_UnknownToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(false, storage.ErrNotFound)

	err := svc.Logout(context.Background(), "some-refresh-token")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{
		ID:           uid,
		PasswordHash: mustHashPW(t, "Current1!"),
		Active:       true,
	}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)
	st.EXPECT().UpdatePassword(gomock.Any(), uid, gomock.Any()).Return(nil)

	require.NoError(t, svc.ChangePassword(context.Background(), uid, "Current1!", "NewPass1!"))
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{
		ID:           uid,
		PasswordHash: mustHashPW(t, "Current1!"),
	}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)

	err := svc.ChangePassword(context.Background(), uid, "Wrong1!pw", "NewPass1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword_WeakNew(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{
		ID:           uid,
		PasswordHash: mustHashPW(t, "Current1!"),
	}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)

	err := svc.ChangePassword(context.Background(), uid, "Current1!", "weak")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestUpdateProfile_SpecialtyForPatientRejected(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{ID: uid, Role: models.RolePatient, Active: true}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)

	specialty := "Cardiologia"
	_, err := svc.UpdateProfile(context.Background(), uid, UpdateProfileInput{Specialty: &specialty})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestUpdateProfile_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{ID: uid, Role: models.RoleDoctor, Active: true}

	first := "Maria"
	updated := &models.User{ID: uid, Role: models.RoleDoctor, FirstName: first}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)
	st.EXPECT().UpdateProfile(gomock.Any(), uid, gomock.Any()).Return(updated, nil)

	got, err := svc.UpdateProfile(context.Background(), uid, UpdateProfileInput{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, first, got.FirstName)
}

func TestAvatarUploadURL_Unconfigured(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.AvatarUploadURL(context.Background(), uuid.New(), "image/png", 1024)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAvatarsUnavailable)
}

func TestAvatarUploadURL_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	av := mocks.NewMockAvatarStorage(ctrl)
	svc.SetAvatarStorage(av)

	uid := uuid.New()
	user := &models.User{ID: uid, Role: models.RolePatient, Active: true}

	st.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil)
	av.EXPECT().AvatarUploadURL(gomock.Any(), uid, "image/png", int64(1024)).
		Return(&storage.UploadInfo{UploadURL: "https://s3/put", AvatarKey: "avatars/x"}, nil)

	info, err := svc.AvatarUploadURL(context.Background(), uid, "image/png", 1024)
	require.NoError(t, err)
	require.Equal(t, "https://s3/put", info.UploadURL)
}

func TestConfirmAvatarUpload_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	av := mocks.NewMockAvatarStorage(ctrl)
	svc.SetAvatarStorage(av)

	uid := uuid.New()
	key := "avatars/" + uid.String() + "/pic.png"

	av.EXPECT().CheckAvatarUpload(gomock.Any(), uid, key).Return("https://cdn/a.png", nil)
	st.EXPECT().ConfirmAvatarUpload(gomock.Any(), uid, key, "https://cdn/a.png").
		Return(&models.User{ID: uid, AvatarURL: "https://cdn/a.png"}, nil)

	user, err := svc.ConfirmAvatarUpload(context.Background(), uid, key)
	require.NoError(t, err)
	require.Equal(t, "https://cdn/a.png", user.AvatarURL)
}

func TestRegister_StorageLookupError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@clinica.mx").
		Return(nil, errors.New("db down"))

	_, _, err := svc.Register(context.Background(), patientParams())
	require.Error(t, err)
}
