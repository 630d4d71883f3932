package models

import (
	"time"

	"github.com/google/uuid"
)

// Review — отзыв пациента о враче (MongoDB).
//
//   - ID — ObjectID MongoDB, наружу конвертируется в string;
//   - AppointmentID — завершённый приём, по которому оставлен отзыв
//     (на один приём — не более одного отзыва);
//   - Rating — оценка 1..5.
type Review struct {
	ID            string
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	AppointmentID uuid.UUID
	PatientName   string
	Rating        int32
	Comment       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListParams — базовые параметры постраничной выдачи.
type ListParams struct {
	PageSize  int32
	PageToken string
}

// ReviewPage — страница отзывов.
type ReviewPage struct {
	Items         []Review
	NextPageToken string
}
