package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-telemed/internal/service/reviews"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

type createReviewRequest struct {
	AppointmentID string `json:"citaId"`
	Rating        int32  `json:"calificacion"`
	Comment       string `json:"comentario"`
}

// CreateReview — POST /resenas: пациент оставляет отзыв по
// завершённому приёму.
func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in createReviewRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	apptID, err := parseUUID(in.AppointmentID, "citaId")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	review, err := h.Reviews.Create(r.Context(), reviews.CreateParams{
		PatientID:     id.UserID,
		AppointmentID: apptID,
		Rating:        in.Rating,
		Comment:       in.Comment,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewDTO(review))
}
