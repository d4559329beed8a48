// Package session persists named, shareable snapshots of completed
// valuation runs. Snapshots are immutable once written: metadata updates
// never touch them, and a rerun produces a new session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrNotShared = errors.New("session is not shared")
)

// Store is the CMA session repository.
type Store struct {
	orm    *gorm.DB
	logger *logrus.Logger
}

func NewStore(orm *gorm.DB, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{orm: orm, logger: logger}
}

// Create snapshots a completed valuation under a name owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID, name, description string, result *models.ValuationResponse) (*models.CMASession, error) {
	subjectJSON, err := json.Marshal(result.SubjectProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot subject: %w", err)
	}
	filterJSON, err := json.Marshal(result.FiltersApplied)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot filters: %w", err)
	}
	comparablesJSON, err := json.Marshal(result.Comparables)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot comparables: %w", err)
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot summary: %w", err)
	}

	sess := &models.CMASession{
		OwnerID:             ownerID,
		Name:                name,
		Description:         description,
		SnapshotVersion:     models.SnapshotVersion,
		SubjectSnapshot:     string(subjectJSON),
		FilterSnapshot:      string(filterJSON),
		ComparablesSnapshot: string(comparablesJSON),
		SummarySnapshot:     string(summaryJSON),
		ComparableCount:     result.Summary.ComparablesUsed,
		WeightedMidValue:    result.Summary.WeightedMidValue,
	}
	if err := s.orm.WithContext(ctx).Create(sess).Error; err != nil {
		s.logger.WithError(err).Error("Failed to create CMA session")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get returns one session scoped to its owner.
func (s *Store) Get(ctx context.Context, ownerID string, id int64) (*models.CMASession, error) {
	var sess models.CMASession
	err := s.orm.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// List returns every session the owner has, favorites first, newest first.
func (s *Store) List(ctx context.Context, ownerID string) ([]models.CMASession, error) {
	var sessions []models.CMASession
	err := s.orm.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("favorite DESC, updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// MetaUpdate carries the only fields a session update may touch.
type MetaUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Favorite    *bool   `json:"favorite"`
}

// UpdateMeta updates session metadata. Snapshot columns are deliberately
// not updatable; recomputing requires a new session.
func (s *Store) UpdateMeta(ctx context.Context, ownerID string, id int64, update MetaUpdate) (*models.CMASession, error) {
	sess, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.Favorite != nil {
		changes["favorite"] = *update.Favorite
	}
	if len(changes) == 0 {
		return sess, nil
	}

	if err := s.orm.WithContext(ctx).Model(sess).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes a session. History records are unaffected; the audit
// trail outlives its sessions.
func (s *Store) Delete(ctx context.Context, ownerID string, id int64) error {
	result := s.orm.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.CMASession{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Share enables standalone sharing, minting a slug on first use.
func (s *Store) Share(ctx context.Context, ownerID string, id int64) (*models.CMASession, error) {
	sess, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{"standalone": true}
	if sess.ShareSlug == nil {
		slug := uuid.NewString()
		changes["share_slug"] = slug
	}
	if err := s.orm.WithContext(ctx).Model(sess).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("failed to share session: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

// Unshare disables the standalone view but keeps the slug reserved.
func (s *Store) Unshare(ctx context.Context, ownerID string, id int64) error {
	sess, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	return s.orm.WithContext(ctx).Model(sess).Update("standalone", false).Error
}

// GetBySlug serves the public standalone view. Owner scoping does not
// apply, but only sessions with sharing enabled resolve.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.CMASession, error) {
	var sess models.CMASession
	err := s.orm.WithContext(ctx).
		Where("share_slug = ?", slug).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared session: %w", err)
	}
	if !sess.Standalone {
		return nil, ErrNotShared
	}
	return &sess, nil
}
