package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/internal/cache"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

func testUser() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Email:  "user@clinica.mx",
		Role:   models.RolePatient,
		Active: true,
	}
}

func TestGenerateAccessToken_AndValidate_OK(t *testing.T) {
	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := testUser()
	now := time.Now().UTC()

	at, err := svc.generateAccessToken(context.Background(), user, now)
	require.NoError(t, err)

	uid, email, role, err := svc.validateAccessToken(at)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.Equal(t, user.Email, email)
	require.Equal(t, models.RolePatient, role)
}

func TestValidateAccessToken_WrongAlg_WrongIssuer_WrongAudience(t *testing.T) {
	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	secret := []byte(testCfg().JWTSecret)
	uid := uuid.New()
	now := time.Now().UTC()

	baseClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"uid":    uid.String(),
			"correo": "a@b.c",
			"rol":    "PACIENTE",
			"iss":    testCfg().Issuer,
			"sub":    uid.String(),
			"aud":    testCfg().Audience,
			"exp":    now.Add(testCfg().AccessTokenTTL).Unix(),
			"iat":    now.Unix(),
		}
	}

	t.Run("wrong alg", func(t *testing.T) {
		claims := baseClaims()
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, _, _, err = svc.validateAccessToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := baseClaims()
		claims["iss"] = "another-issuer"
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, _, _, err = svc.validateAccessToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := baseClaims()
		claims["aud"] = []string{"unexpected-aud"}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, _, _, err = svc.validateAccessToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := baseClaims()
		claims["rol"] = "SUPERUSUARIO"
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		_, _, _, err = svc.validateAccessToken(signed)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	cfg := testCfg()
	cfg.AccessTokenTTL = -10 * time.Second
	svc.cfg = cfg

	at, err := svc.generateAccessToken(context.Background(), testUser(), time.Now().UTC())
	require.NoError(t, err)

	_, _, _, err = svc.validateAccessToken(at)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh_OK_RotatesOldToken(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser()
	plain := "refresh-plain-token"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		RefreshTokenHash: hash,
		UserID:           user.ID,
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	// Ротация: старый токен отзывается до сохранения нового.
	st.EXPECT().RevokeRefreshToken(gomock.Any(), hash).Return(true, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	got, tp, err := svc.Refresh(ctx, plain)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
	require.NotEqual(t, plain, tp.RefreshToken)
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	_, _, err := svc.Refresh(context.Background(), "unknown")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_RevokedToken(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).
		Return(&models.RefreshToken{
			UserID:    uuid.New(),
			Revoked:   true,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)

	_, _, err := svc.Refresh(context.Background(), "revoked")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).
		Return(&models.RefreshToken{
			UserID:    uuid.New(),
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		}, nil)

	_, _, err := svc.Refresh(context.Background(), "expired")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh_InactiveUser(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).
		Return(&models.RefreshToken{
			UserID:    uid,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)
	st.EXPECT().UserByID(gomock.Any(), uid).
		Return(&models.User{ID: uid, Active: false}, nil)

	_, _, err := svc.Refresh(context.Background(), "token")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestGenerateRefreshToken_CollisionRetry(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Первая попытка — коллизия хэша, вторая — успех.
	gomock.InOrder(
		st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists),
		st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil),
	)

	plain, err := svc.generateRefreshToken(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, plain)
}

func TestGenerateRefreshToken_CollisionExceeded(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists).Times(5)

	_, err := svc.generateRefreshToken(context.Background(), uuid.New())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRefreshTokenCollision)
}

func TestValidateRefreshToken_CacheHit_SkipsStorage(t *testing.T) {
	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	svc.SetRefreshCache(rc)

	ctx := context.Background()
	uid := uuid.New()
	plain := "cached-refresh"
	hash := hashToken(plain)

	require.NoError(t, rc.Set(ctx, hash, &cache.RefreshEntry{
		UserID:    uid,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}, time.Hour))

	// Хранилище не трогаем: попадание в кэш закрывает валидацию.
	token, err := svc.validateRefreshToken(ctx, plain)
	require.NoError(t, err)
	require.Equal(t, uid, token.UserID)
}

func TestValidateRefreshToken_CacheRevoked(t *testing.T) {
	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	svc.SetRefreshCache(rc)

	ctx := context.Background()
	plain := "revoked-refresh"
	hash := hashToken(plain)

	require.NoError(t, rc.Set(ctx, hash, &cache.RefreshEntry{
		UserID:    uuid.New(),
		Revoked:   true,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}, time.Hour))

	_, err = svc.validateRefreshToken(ctx, plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestValidateRefreshToken_CacheMiss_FallsBackToStorage(t *testing.T) {
	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	svc.SetRefreshCache(rc)

	ctx := context.Background()
	uid := uuid.New()
	plain := "uncached-refresh"
	hash := hashToken(plain)

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(&models.RefreshToken{
		RefreshTokenHash: hash,
		UserID:           uid,
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
	}, nil)

	token, err := svc.validateRefreshToken(ctx, plain)
	require.NoError(t, err)
	require.Equal(t, uid, token.UserID)

	// После промаха запись дописывается в кэш.
	_, ok, err := rc.Get(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
}
