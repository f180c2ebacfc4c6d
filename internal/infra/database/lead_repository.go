package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Create assigns the lead its id and creation time and inserts it.
// The id is only set on the lead once the insert succeeded.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}

	details, err := json.Marshal(lead.Details)
	if err != nil {
		return fmt.Errorf("encode lead details: %w", err)
	}

	id := uuid.New().String()
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO leads (
			id, first_name, last_name, email, phone, insurance_type, details,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			tags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.DB.ExecContext(ctx, query,
		id,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		string(lead.InsuranceType),
		details,
		lead.Attribution.Source,
		lead.Attribution.Medium,
		lead.Attribution.Campaign,
		lead.Attribution.Term,
		lead.Attribution.Content,
		pq.Array(lead.Tags),
		createdAt,
	)
	if err != nil {
		return wrapPgError("insert lead", err)
	}

	lead.ID = id
	lead.CreatedAt = createdAt
	return nil
}

// AttachCRMID links the external CRM record. It is the only update a lead ever
// receives and it only succeeds once; repeating it with the same id is a no-op.
func (r *LeadRepository) AttachCRMID(ctx context.Context, leadID, crmID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET crm_lead_id = $2 WHERE id = $1 AND crm_lead_id IS NULL`,
		leadID, crmID,
	)
	if err != nil {
		return wrapPgError("attach crm id", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapPgError("attach crm id", err)
	}
	if n == 1 {
		return nil
	}

	var current sql.NullString
	err = r.DB.QueryRowContext(ctx, `SELECT crm_lead_id FROM leads WHERE id = $1`, leadID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrLeadNotFound
	}
	if err != nil {
		return wrapPgError("attach crm id", err)
	}
	if current.Valid && current.String == crmID {
		return nil
	}
	return entity.ErrCRMIDAlreadyLinked
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, insurance_type, details,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			tags, crm_lead_id, created_at
		FROM leads
		WHERE id = $1
	`

	var (
		lead          entity.Lead
		insuranceType string
		details       []byte
		source        sql.NullString
		medium        sql.NullString
		campaign      sql.NullString
		term          sql.NullString
		content       sql.NullString
		crmID         sql.NullString
	)

	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&insuranceType,
		&details,
		&source,
		&medium,
		&campaign,
		&term,
		&content,
		pq.Array(&lead.Tags),
		&crmID,
		&lead.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, wrapPgError("find lead", err)
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &lead.Details); err != nil {
			return nil, fmt.Errorf("decode lead details: %w", err)
		}
	}

	lead.InsuranceType = entity.InsuranceType(insuranceType)
	lead.Attribution = entity.Attribution{
		Source:   fromNull(source),
		Medium:   fromNull(medium),
		Campaign: fromNull(campaign),
		Term:     fromNull(term),
		Content:  fromNull(content),
	}
	lead.CRMLeadID = crmID.String

	return &lead, nil
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
