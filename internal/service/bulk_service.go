package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// BulkRemovalReason is recorded when a bulk edit removes a pending booking.
const BulkRemovalReason = "removed by bulk edit"

type bookingLedger interface {
	Submit(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*models.Booking, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error)
	Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Booking, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error)
	InRange(ctx context.Context, start, end week.Date, employeeIDs []string, statuses ...models.BookingStatus) ([]models.Booking, error)
}

// BulkService applies a desired week of selections through the ledger.
type BulkService struct {
	ledger    bookingLedger
	settings  firstDayProvider
	audit     auditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulkService constructs a BulkService.
func NewBulkService(ledger bookingLedger, settings firstDayProvider, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *BulkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		ledger:    ledger,
		settings:  settings,
		audit:     auditor{repo: audit, logger: logger, component: "bulk-service"},
		validator: validate,
		logger:    logger,
	}
}

// Apply reconciles the week containing req.WeekOf against req.Selections and
// executes every instruction independently. Individual failures are reported
// in the result and never abort the remaining instructions.
func (s *BulkService) Apply(ctx context.Context, req dto.BulkApplyRequest, actor *models.JWTClaims) (*dto.BulkApplyResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may bulk edit bookings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	ref, err := week.ParseDate(req.WeekOf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weekOf must be YYYY-MM-DD")
	}
	desired, employeeIDs, err := selectionsFromRequest(req.Selections)
	if err != nil {
		return nil, err
	}
	first, err := s.settings.FirstDayOfWeek(ctx)
	if err != nil {
		return nil, err
	}
	window := week.ComputeWindow(ref, first)

	existing, err := s.ledger.InRange(ctx, window.Start(), window.End(), employeeIDs,
		models.BookingStatusPending, models.BookingStatusApproved)
	if err != nil {
		return nil, err
	}
	plan := Reconcile(window, existing, desired)

	result := &dto.BulkApplyResult{
		WeekStart: window.Start(),
		WeekEnd:   window.End(),
		Created:   []models.Booking{},
		Cancelled: []string{},
		Rejected:  []string{},
		Failures:  []dto.BulkFailure{},
	}

	for _, ins := range plan.ToCreate {
		booking, err := s.ledger.Submit(ctx, dto.CreateBookingRequest{
			EmployeeID: ins.EmployeeID,
			Date:       ins.Date.String(),
			TimeSlotID: ins.TimeSlotID,
		}, actor)
		if err != nil {
			result.Failures = append(result.Failures, bulkFailure(ActionSubmit, ins.EmployeeID, ins.Date, ins.TimeSlotID, "", err))
			continue
		}
		if req.Approve && booking.Status == models.BookingStatusPending {
			approved, err := s.ledger.Approve(ctx, booking.ID, actor)
			if err != nil {
				result.Failures = append(result.Failures, bulkFailure(ActionApprove, ins.EmployeeID, ins.Date, ins.TimeSlotID, booking.ID, err))
			} else {
				booking = approved
			}
		}
		result.Created = append(result.Created, *booking)
	}

	for _, ins := range plan.ToCancel {
		switch ins.Status {
		case models.BookingStatusApproved:
			if _, err := s.ledger.Cancel(ctx, ins.BookingID, actor); err != nil {
				result.Failures = append(result.Failures, bulkFailure(ActionCancel, ins.EmployeeID, ins.Date, ins.TimeSlotID, ins.BookingID, err))
				continue
			}
			result.Cancelled = append(result.Cancelled, ins.BookingID)
		default:
			if _, err := s.ledger.Reject(ctx, ins.BookingID, BulkRemovalReason, actor); err != nil {
				result.Failures = append(result.Failures, bulkFailure(ActionReject, ins.EmployeeID, ins.Date, ins.TimeSlotID, ins.BookingID, err))
				continue
			}
			result.Rejected = append(result.Rejected, ins.BookingID)
		}
	}

	s.audit.record(ctx, actor, models.AuditActionBulkApply, "booking", "", nil, map[string]interface{}{
		"weekStart": window.Start().String(),
		"created":   len(result.Created),
		"cancelled": len(result.Cancelled),
		"rejected":  len(result.Rejected),
		"failures":  len(result.Failures),
	})
	s.logger.Info("bulk edit applied",
		zap.String("week_start", window.Start().String()),
		zap.Int("created", len(result.Created)),
		zap.Int("cancelled", len(result.Cancelled)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("failures", len(result.Failures)))
	return result, nil
}

func selectionsFromRequest(raw map[string]map[int][]string) (Selections, []string, error) {
	desired := make(Selections, len(raw))
	for employeeID, days := range raw {
		employeeID = strings.TrimSpace(employeeID)
		if employeeID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "selections contain an empty employee id")
		}
		if _, seen := desired[employeeID]; !seen {
			desired[employeeID] = make(map[week.DisplayIndex]map[string]struct{})
		}
		for day, slotIDs := range days {
			idx := week.DisplayIndex(day)
			if !idx.Valid() {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, "day index must be between 0 and 6")
			}
			for _, slotID := range slotIDs {
				slotID = strings.TrimSpace(slotID)
				if slotID == "" {
					continue
				}
				desired.Add(employeeID, idx, slotID)
			}
		}
	}
	return desired, sortedKeys(desired), nil
}

func bulkFailure(action, employeeID string, date week.Date, slotID, bookingID string, err error) dto.BulkFailure {
	appErr := appErrors.FromError(err)
	return dto.BulkFailure{
		Action:     action,
		EmployeeID: employeeID,
		Date:       date,
		TimeSlotID: slotID,
		BookingID:  bookingID,
		Code:       appErr.Code,
		Message:    appErr.Message,
	}
}
