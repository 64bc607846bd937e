package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubmissionStatusDraft      = "Draft"
	SubmissionStatusSubmitted  = "Submitted"
	SubmissionStatusInProgress = "In Progress"
)

type Submission struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	AgencyId     string `gorm:"index;size:36;not null" json:"agency_id"`
	BusinessName string `gorm:"size:200;not null" json:"business_name"`
	Status       string `gorm:"size:30;not null;default:'Draft'" json:"status"`

	// Insured data comes from either a live record or a frozen snapshot taken
	// at submission-creation time (newer camelCase shape). Each dispatch
	// normalizes whichever is available; the snapshot wins when present.
	InsuredInfoId       *uint        `gorm:"index" json:"insured_info_id,omitempty"`
	InsuredInfo         *InsuredInfo `gorm:"foreignKey:InsuredInfoId" json:"insured_info,omitempty"`
	InsuredSnapshotJSON []byte       `gorm:"type:json" json:"-"`

	RpaTasksJSON []byte    `gorm:"type:json" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RpaTasks decodes the persisted per-carrier task map.
func (s *Submission) RpaTasks() RpaTaskMap {
	return DecodeRpaTasks(s.RpaTasksJSON)
}

// InsuredShape returns the raw keyed shape the normalizer consumes:
// the frozen snapshot when one exists, else the live record's legacy shape,
// else an empty map (normalization still yields a fully-shaped record).
func (s *Submission) InsuredShape() map[string]interface{} {
	if len(s.InsuredSnapshotJSON) > 0 {
		var snap map[string]interface{}
		if err := json.Unmarshal(s.InsuredSnapshotJSON, &snap); err == nil && snap != nil {
			return snap
		}
	}
	if s.InsuredInfo != nil {
		if shape, err := s.InsuredInfo.LegacyShape(); err == nil {
			return shape
		}
	}
	return map[string]interface{}{}
}

type NewSubmission struct {
	BusinessName    string                 `json:"businessName" binding:"required"`
	InsuredInfoId   *uint                  `json:"insuredInfoId"`
	InsuredSnapshot map[string]interface{} `json:"insuredSnapshot"`
}

func CreateSubmission(ctx context.Context, agencyId string, input *NewSubmission) (*Submission, error) {
	sub := Submission{
		ID:            uuid.NewString(),
		AgencyId:      agencyId,
		BusinessName:  input.BusinessName,
		Status:        SubmissionStatusDraft,
		InsuredInfoId: input.InsuredInfoId,
		RpaTasksJSON:  EncodeRpaTasks(RpaTaskMap{}),
	}
	if input.InsuredInfoId != nil {
		if _, err := GetInsuredInfo(ctx, agencyId, *input.InsuredInfoId); err != nil {
			return nil, errors.New("insured info not found")
		}
	}
	if len(input.InsuredSnapshot) > 0 {
		raw, err := json.Marshal(input.InsuredSnapshot)
		if err != nil {
			return nil, err
		}
		sub.InsuredSnapshotJSON = raw
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func GetSubmission(ctx context.Context, agencyId string, id string) (*Submission, error) {
	cached, err := utils.RetrieveRedis[Submission](id)
	if err == nil && cached != nil && cached.AgencyId == agencyId {
		return cached, nil
	}

	db := config.GetDB()
	var sub Submission
	err = db.WithContext(ctx).
		Preload("InsuredInfo").
		Where("id = ? AND agency_id = ?", id, agencyId).
		Take(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	_ = utils.StoreRedis[Submission](&sub, id)
	return &sub, nil
}

func GetSubmissions(ctx context.Context, agencyId string, limit int) ([]*Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := config.GetDB()
	var subs []*Submission
	err := db.WithContext(ctx).
		Where("agency_id = ?", agencyId).
		Order("created_at desc").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// UpdateSubmissionTasks persists the merged task map and marks the submission
// submitted. The caller is expected to hold the submission lock and to have
// merged against the freshly-read map.
func UpdateSubmissionTasks(ctx context.Context, sub *Submission, tasks RpaTaskMap) error {
	db := config.GetDB()
	raw := EncodeRpaTasks(tasks)
	err := db.WithContext(ctx).Model(&Submission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"rpa_tasks_json": raw,
			"status":         SubmissionStatusSubmitted,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return err
	}
	sub.RpaTasksJSON = raw
	sub.Status = SubmissionStatusSubmitted
	_ = utils.InvalidateRedis[Submission](sub.ID)
	return nil
}

// AttachInsuredInfo points the submission at a live insured record and drops
// any stale snapshot so the live record becomes the dispatch source.
func AttachInsuredInfo(ctx context.Context, sub *Submission, infoId uint) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Submission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"insured_info_id":       infoId,
			"insured_snapshot_json": nil,
			"updated_at":            time.Now(),
		}).Error
	if err != nil {
		return err
	}
	_ = utils.InvalidateRedis[Submission](sub.ID)
	return nil
}
