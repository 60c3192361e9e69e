package data

import (
	"context"
	"errors"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/constants"
	"sms-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sendAttemptRepo 发送记录数据访问
type sendAttemptRepo struct {
	data *Data
	log  *log.Helper
}

// NewSendAttemptRepo 创建发送记录 repo
func NewSendAttemptRepo(data *Data, logger log.Logger) biz.SendAttemptRepo {
	return &sendAttemptRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toAttemptModel(a *biz.SendAttempt) *model.SendAttempt {
	return &model.SendAttempt{
		SendAttemptID:     a.ID,
		AccountID:         a.AccountID,
		ReservationID:     a.ReservationID,
		RecipientPhone:    a.RecipientPhone,
		MessageText:       a.MessageText,
		Type:              a.Type,
		Status:            a.Status,
		CostUnits:         a.CostUnits,
		Segments:          a.Segments,
		Encoding:          a.Encoding,
		Retries:           a.Retries,
		ProviderMessageID: a.ProviderMessageID,
		ErrorDetail:       a.ErrorDetail,
		CreatedAt:         a.CreatedAt,
		SentAt:            a.SentAt,
		DeliveredAt:       a.DeliveredAt,
	}
}

func toAttemptBiz(m *model.SendAttempt) *biz.SendAttempt {
	return &biz.SendAttempt{
		ID:                m.SendAttemptID,
		AccountID:         m.AccountID,
		ReservationID:     m.ReservationID,
		RecipientPhone:    m.RecipientPhone,
		MessageText:       m.MessageText,
		Type:              m.Type,
		Status:            m.Status,
		CostUnits:         m.CostUnits,
		Segments:          m.Segments,
		Encoding:          m.Encoding,
		Retries:           m.Retries,
		ProviderMessageID: m.ProviderMessageID,
		ErrorDetail:       m.ErrorDetail,
		CreatedAt:         m.CreatedAt,
		SentAt:            m.SentAt,
		DeliveredAt:       m.DeliveredAt,
	}
}

// CreateSendAttempts 批量创建发送记录
func (r *sendAttemptRepo) CreateSendAttempts(ctx context.Context, attempts []*biz.SendAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	models := make([]*model.SendAttempt, 0, len(attempts))
	for _, a := range attempts {
		models = append(models, toAttemptModel(a))
	}
	return r.data.db.WithContext(ctx).Create(&models).Error
}

// MarkSent 将 pending 记录标记为 sent
func (r *sendAttemptRepo) MarkSent(ctx context.Context, attemptID, providerMessageID string, sentAt time.Time) error {
	return r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).
		Where("send_attempt_id = ? AND status = ?", attemptID, constants.SendStatusPending).
		Updates(map[string]interface{}{
			"status":              constants.SendStatusSent,
			"provider_message_id": providerMessageID,
			"sent_at":             sentAt,
		}).Error
}

// MarkFailed 将记录标记为 failed（终态）
func (r *sendAttemptRepo) MarkFailed(ctx context.Context, attemptID, errorDetail string) error {
	return r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).
		Where("send_attempt_id = ? AND status NOT IN ?", attemptID,
			[]string{constants.SendStatusDelivered, constants.SendStatusFailed}).
		Updates(map[string]interface{}{
			"status":       constants.SendStatusFailed,
			"error_detail": errorDetail,
		}).Error
}

// ResolveDelivery 按运营商消息ID落地送达回执
// 终态不回退：已 delivered/failed 的记录原样返回。
func (r *sendAttemptRepo) ResolveDelivery(ctx context.Context, providerMessageID, status, errorDetail string, at time.Time) (*biz.SendAttempt, error) {
	var m model.SendAttempt
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider_message_id = ?", providerMessageID).
			First(&m).Error; err != nil {
			return err
		}

		if m.Status == constants.SendStatusDelivered || m.Status == constants.SendStatusFailed {
			return nil
		}

		updates := map[string]interface{}{
			"status":       status,
			"error_detail": errorDetail,
		}
		if status == constants.SendStatusDelivered {
			updates["delivered_at"] = at
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return err
		}
		m.Status = status
		m.ErrorDetail = errorDetail
		if status == constants.SendStatusDelivered {
			m.DeliveredAt = &at
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toAttemptBiz(&m), nil
}

// ListSendAttempts 分页查询发送记录
func (r *sendAttemptRepo) ListSendAttempts(ctx context.Context, q *biz.AttemptQuery) ([]*biz.SendAttempt, int64, error) {
	var models []model.SendAttempt
	var total int64

	db := r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).Where("account_id = ?", q.AccountID)
	if !q.From.IsZero() {
		db = db.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("created_at < ?", q.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.PageSize
	if err := db.Offset(offset).Limit(q.PageSize).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	attempts := make([]*biz.SendAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, toAttemptBiz(&models[i]))
	}
	return attempts, total, nil
}

// IncrRetries 重试计数自增
func (r *sendAttemptRepo) IncrRetries(ctx context.Context, attemptID string) error {
	return r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).
		Where("send_attempt_id = ?", attemptID).
		Update("retries", gorm.Expr("retries + 1")).Error
}
