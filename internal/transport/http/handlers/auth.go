package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/service/audit"
	"github.com/pribylovaa/go-telemed/internal/service/auth"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

type registerRequest struct {
	Email     string `json:"correo"`
	Password  string `json:"contrasena"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Phone     string `json:"telefono"`
	Role      string `json:"rol"`
	Specialty string `json:"especialidad"`
}

// Register — POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	user, tokens, err := h.Auth.Register(r.Context(), auth.RegisterParams{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      models.Role(in.Role),
		Specialty: in.Specialty,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.Audit.Record(r.Context(), audit.Event{
		ActorID:    user.ID,
		ActorEmail: user.Email,
		Action:     "auth.register",
		Entity:     "user",
		EntityID:   user.ID.String(),
	})

	writeJSON(w, http.StatusCreated, authResponse{User: toUserDTO(user), Tokens: toTokensDTO(tokens)})
}

type loginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	user, tokens, err := h.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		// Неудачный вход — событие безопасности, пишем без actor id.
		h.Audit.Record(r.Context(), audit.Event{
			ActorEmail: in.Email,
			Action:     "auth.login_failed",
			Entity:     "user",
		})
		apierrors.WriteError(w, r, err)
		return
	}

	h.Audit.Record(r.Context(), audit.Event{
		ActorID:    user.ID,
		ActorEmail: user.Email,
		Action:     "auth.login",
		Entity:     "user",
		EntityID:   user.ID.String(),
	})

	writeJSON(w, http.StatusOK, authResponse{User: toUserDTO(user), Tokens: toTokensDTO(tokens)})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh — POST /auth/refresh. Ротация: старый refresh отзывается,
// выдаётся новая пара.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	user, tokens, err := h.Auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: toUserDTO(user), Tokens: toTokensDTO(tokens)})
}

// Logout — POST /auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	if err := h.Auth.Logout(r.Context(), in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if id, err := callerID(r); err == nil {
		h.Audit.Record(r.Context(), audit.Event{
			ActorID:    id.UserID,
			ActorEmail: id.Email,
			Action:     "auth.logout",
			Entity:     "user",
			EntityID:   id.UserID.String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type changePasswordRequest struct {
	Current string `json:"contrasenaActual"`
	Next    string `json:"contrasenaNueva"`
}

// ChangePassword — POST /auth/change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), id.UserID, in.Current, in.Next); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.Audit.Record(r.Context(), audit.Event{
		ActorID:    id.UserID,
		ActorEmail: id.Email,
		Action:     "auth.change_password",
		Entity:     "user",
		EntityID:   id.UserID.String(),
	})
	h.Notifications.SecurityEvent(r.Context(), id.UserID, "La contraseña de tu cuenta fue cambiada.")

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Profile — GET /auth/profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Auth.Profile(r.Context(), id.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

type updateProfileRequest struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Phone     *string `json:"telefono"`
	Specialty *string `json:"especialidad"`
}

// UpdateProfile — PUT /auth/profile. Частичное обновление:
// отсутствующее поле остаётся как есть.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	user, err := h.Auth.UpdateProfile(r.Context(), id.UserID, auth.UpdateProfileInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Specialty: in.Specialty,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

type avatarPresignRequest struct {
	ContentType   string `json:"tipoContenido"`
	ContentLength int64  `json:"tamano"`
}

// AvatarPresign — POST /auth/avatar/presign: выдаёт presigned PUT URL.
func (h *Handlers) AvatarPresign(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in avatarPresignRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	info, err := h.Auth.AvatarUploadURL(r.Context(), id.UserID, in.ContentType, in.ContentLength)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadInfoDTO(info))
}

type avatarConfirmRequest struct {
	AvatarKey string `json:"claveAvatar"`
}

// AvatarConfirm — POST /auth/avatar/confirm: проверяет загруженный
// объект и фиксирует аватар в профиле.
func (h *Handlers) AvatarConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in avatarConfirmRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	user, err := h.Auth.ConfirmAvatarUpload(r.Context(), id.UserID, in.AvatarKey)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}
