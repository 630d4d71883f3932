package reviews

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
	"github.com/pribylovaa/go-telemed/mocks"
)

func testReviewsCfg() config.ReviewsConfig {
	return config.ReviewsConfig{
		PageSizeDefault: 20,
		PageSizeMax:     100,
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockReviewStorage, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	rv := mocks.NewMockReviewStorage(ctrl)
	st := mocks.NewMockStorage(ctrl)
	return New(rv, st, testReviewsCfg()), rv, st, ctrl
}

func completedAppointment(patientID uuid.UUID) *models.Appointment {
	return &models.Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  uuid.New(),
		Status:    models.AppointmentCompleted,
	}
}

func TestCreate_OK(t *testing.T) {
	t.Parallel()

	svc, rv, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	patientID := uuid.New()
	appt := completedAppointment(patientID)

	st.EXPECT().AppointmentByID(gomock.Any(), appt.ID).Return(appt, nil)
	st.EXPECT().UserByID(gomock.Any(), patientID).
		Return(&models.User{ID: patientID, FirstName: "Ana", LastName: "Lopez"}, nil)
	rv.EXPECT().CreateReview(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Review) (*models.Review, error) {
			require.Equal(t, appt.DoctorID, r.DoctorID)
			require.Equal(t, "Ana Lopez", r.PatientName)
			require.EqualValues(t, 5, r.Rating)
			out := r
			out.ID = "64f000000000000000000001"
			return &out, nil
		})

	review, err := svc.Create(context.Background(), CreateParams{
		PatientID:     patientID,
		AppointmentID: appt.ID,
		Rating:        5,
		Comment:       "  excelente atencion  ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, review.ID)
	require.Equal(t, "excelente atencion", review.Comment)
}

func TestCreate_InvalidRating(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, rating := range []int32{0, 6, -1} {
		_, err := svc.Create(context.Background(), CreateParams{
			PatientID:     uuid.New(),
			AppointmentID: uuid.New(),
			Rating:        rating,
		})
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestCreate_AppointmentNotFound(t *testing.T) {
	t.Parallel()

	svc, _, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().AppointmentByID(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	_, err := svc.Create(context.Background(), CreateParams{
		PatientID:     uuid.New(),
		AppointmentID: uuid.New(),
		Rating:        4,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCreate_ForeignAppointment(t *testing.T) {
	t.Parallel()

	svc, _, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	appt := completedAppointment(uuid.New())
	st.EXPECT().AppointmentByID(gomock.Any(), appt.ID).Return(appt, nil)

	_, err := svc.Create(context.Background(), CreateParams{
		PatientID:     uuid.New(),
		AppointmentID: appt.ID,
		Rating:        4,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotYourAppointment)
}

func TestCreate_NotCompleted(t *testing.T) {
	t.Parallel()

	svc, _, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	patientID := uuid.New()
	appt := completedAppointment(patientID)
	appt.Status = models.AppointmentScheduled

	st.EXPECT().AppointmentByID(gomock.Any(), appt.ID).Return(appt, nil)

	_, err := svc.Create(context.Background(), CreateParams{
		PatientID:     patientID,
		AppointmentID: appt.ID,
		Rating:        4,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAppointmentNotCompleted)
}

func TestCreate_Duplicate(t *testing.T) {
	t.Parallel()

	svc, rv, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	patientID := uuid.New()
	appt := completedAppointment(patientID)

	st.EXPECT().AppointmentByID(gomock.Any(), appt.ID).Return(appt, nil)
	st.EXPECT().UserByID(gomock.Any(), patientID).
		Return(&models.User{ID: patientID}, nil)
	rv.EXPECT().CreateReview(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrAlreadyExists)

	_, err := svc.Create(context.Background(), CreateParams{
		PatientID:     patientID,
		AppointmentID: appt.ID,
		Rating:        4,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDuplicateReview)
}

func TestListByDoctor_ClampsPageSize(t *testing.T) {
	t.Parallel()

	svc, rv, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	doctorID := uuid.New()

	rv.EXPECT().ListByDoctor(gomock.Any(), doctorID, models.ListParams{PageSize: 20}).
		Return(&models.ReviewPage{}, nil)
	_, err := svc.ListByDoctor(context.Background(), doctorID, models.ListParams{})
	require.NoError(t, err)

	rv.EXPECT().ListByDoctor(gomock.Any(), doctorID, models.ListParams{PageSize: 100}).
		Return(&models.ReviewPage{}, nil)
	_, err = svc.ListByDoctor(context.Background(), doctorID, models.ListParams{PageSize: 500})
	require.NoError(t, err)
}

func TestListByDoctor_InvalidCursor(t *testing.T) {
	t.Parallel()

	svc, rv, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	rv.EXPECT().ListByDoctor(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrInvalidCursor)

	_, err := svc.ListByDoctor(context.Background(), uuid.New(), models.ListParams{PageToken: "garbage"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestRatingSummary_OK(t *testing.T) {
	t.Parallel()

	svc, rv, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	doctorID := uuid.New()
	rv.EXPECT().RatingSummary(gomock.Any(), doctorID).Return(4.5, int64(12), nil)

	avg, count, err := svc.RatingSummary(context.Background(), doctorID)
	require.NoError(t, err)
	require.Equal(t, 4.5, avg)
	require.EqualValues(t, 12, count)
}
