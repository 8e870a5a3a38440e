package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmedina-dev/comicverse-server/cmd/models"
	"gorm.io/gorm"
)

// Manager owns the membership lifecycle: expiration computation, the
// one-active-membership-per-user relationship, block/unblock toggling and
// removal. Handlers in routes.go are a thin HTTP skin over this type.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// ExpirationDate derives when a membership lapses from its plan type and
// purchase date. Month arithmetic follows time.AddDate overflow semantics:
// Jan 31 + 1 month lands in early March, it is not clamped to Feb 28/29.
func ExpirationDate(membershipType models.MembershipType, createdAt time.Time) (time.Time, error) {
	switch membershipType {
	case models.MonthlyMember:
		return createdAt.AddDate(0, 1, 0), nil
	case models.AnnualMember:
		return createdAt.AddDate(1, 0, 0), nil
	case models.Creator:
		return createdAt.AddDate(0, 2, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMembershipType, membershipType)
	}
}

// AddParams carries the caller-supplied fields for a new membership.
// ExpirationDate is intentionally absent: it is always derived.
type AddParams struct {
	Email       string
	Type        models.MembershipType
	CreatedAt   time.Time
	PaymentDate time.Time
	Price       float64
}

// Add creates a membership for the user registered under params.Email and
// points the user's membership reference at it. The insert and the
// reference update run in one transaction so a failure cannot leave the
// row orphaned from its user.
func (m *Manager) Add(ctx context.Context, params AddParams) (uuid.UUID, error) {
	expirationDate, err := ExpirationDate(params.Type, params.CreatedAt)
	if err != nil {
		return uuid.Nil, err
	}

	newMembership := models.Membership{
		ID:             uuid.New(),
		Type:           params.Type,
		CreatedAt:      params.CreatedAt,
		PaymentDate:    params.PaymentDate,
		Price:          params.Price,
		ExpirationDate: expirationDate,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", params.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user with email %s is not registered", ErrNotFound, params.Email)
			}
			return fmt.Errorf("%w: looking up user: %v", ErrOperationFailed, err)
		}

		newMembership.UserID = user.ID
		if err := tx.Create(&newMembership).Error; err != nil {
			return fmt.Errorf("%w: creating membership: %v", ErrOperationFailed, err)
		}

		// Overwrites any previous reference: a user holds at most one
		// active membership.
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("membership_id", newMembership.ID).Error; err != nil {
			return fmt.Errorf("%w: linking membership to user: %v", ErrOperationFailed, err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return newMembership.ID, nil
}

// List returns all non-blocked memberships ordered by purchase date. The
// is_deleted predicate is part of the query, blocked rows are never
// fetched.
func (m *Manager) List(ctx context.Context) ([]models.Membership, error) {
	var memberships []models.Membership
	err := m.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("created_at").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing memberships: %v", ErrOperationFailed, err)
	}
	return memberships, nil
}

// GetByID returns the membership with the given id. A blocked membership
// yields ErrMembershipBlocked, which callers must report differently from
// ErrNotFound: the id exists, access to it is denied.
func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	err := m.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: membership with id %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: fetching membership: %v", ErrOperationFailed, err)
	}
	if membership.IsDeleted {
		return nil, fmt.Errorf("%w: membership with id %s", ErrMembershipBlocked, id)
	}
	return &membership, nil
}

// GetByUserID looks a membership up through its owner rather than its own
// id. A user without a membership is not an error: the result is simply
// (nil, nil).
func (m *Manager) GetByUserID(ctx context.Context, userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := m.db.WithContext(ctx).Where("user_id = ?", userID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: fetching user membership: %v", ErrOperationFailed, err)
	}
	return &membership, nil
}

// UpdateParams carries the replacement fields for an existing membership.
type UpdateParams struct {
	Type        models.MembershipType
	CreatedAt   time.Time
	PaymentDate time.Time
	Price       float64
}

// Update rewrites a membership's fields and recomputes its expiration
// date from the new type and purchase date. The stored expiration value
// is never carried over.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	expirationDate, err := ExpirationDate(params.Type, params.CreatedAt)
	if err != nil {
		return err
	}

	var membership models.Membership
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: membership with id %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: fetching membership: %v", ErrOperationFailed, err)
	}

	result := m.db.WithContext(ctx).Model(&models.Membership{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"type":            params.Type,
			"created_at":      params.CreatedAt,
			"payment_date":    params.PaymentDate,
			"price":           params.Price,
			"expiration_date": expirationDate,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: updating membership: %v", ErrOperationFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: update of membership %s affected no rows", ErrOperationFailed, id)
	}
	return nil
}

// ToggleBlocked flips the membership's blocked flag and returns the new
// state. Calling it twice restores the original state: this is a
// reversible block/unblock, not a deletion.
func (m *Manager) ToggleBlocked(ctx context.Context, id uuid.UUID) (bool, error) {
	var membership models.Membership
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: membership with id %s", ErrNotFound, id)
		}
		return false, fmt.Errorf("%w: fetching membership: %v", ErrOperationFailed, err)
	}

	blocked := !membership.IsDeleted
	err := m.db.WithContext(ctx).Model(&models.Membership{}).
		Where("id = ?", id).
		Update("is_deleted", blocked).Error
	if err != nil {
		return false, fmt.Errorf("%w: toggling blocked state: %v", ErrOperationFailed, err)
	}
	return blocked, nil
}

// Remove permanently deletes a membership and clears the owning user's
// reference to it. Both writes run in one transaction.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) error {
	var membership models.Membership
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: membership with id %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: fetching membership: %v", ErrOperationFailed, err)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("membership_id = ?", id).
			Update("membership_id", nil).Error; err != nil {
			return fmt.Errorf("%w: detaching membership from user: %v", ErrOperationFailed, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("%w: deleting membership: %v", ErrOperationFailed, err)
		}
		return nil
	})
}
