package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"courtportal/internal/domain"
)

// Registry repositories: guests, notices, events, swearing-in
// preferences, and court content.

type GuestRepo struct {
	db *sql.DB
}

func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

var _ domain.GuestRepository = (*GuestRepo)(nil)

const guestColumns = `id, judge_id, name, id_number, phone, email, status, created_at, updated_at`

func (r *GuestRepo) Create(ctx context.Context, g *domain.GuestEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO guests (judge_id, name, id_number, phone, email, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, g.JudgeID, g.Name, g.IDNumber, g.Phone, g.Email, g.Status)
	if err != nil {
		return fmt.Errorf("insert guest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	g.ID = id
	return nil
}

func (r *GuestRepo) GetByID(ctx context.Context, id int64) (*domain.GuestEntry, error) {
	g := &domain.GuestEntry{}
	err := r.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id).Scan(
		&g.ID, &g.JudgeID, &g.Name, &g.IDNumber, &g.Phone, &g.Email, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return g, nil
}

func (r *GuestRepo) ListForJudge(ctx context.Context, judgeID int64) ([]*domain.GuestEntry, error) {
	return r.list(ctx, `SELECT `+guestColumns+` FROM guests WHERE judge_id = ? ORDER BY created_at ASC`, judgeID)
}

func (r *GuestRepo) ListAll(ctx context.Context) ([]*domain.GuestEntry, error) {
	return r.list(ctx, `SELECT `+guestColumns+` FROM guests ORDER BY created_at ASC`)
}

func (r *GuestRepo) Update(ctx context.Context, g *domain.GuestEntry) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE guests
		SET name = ?, id_number = ?, phone = ?, email = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, g.Name, g.IDNumber, g.Phone, g.Email, g.Status, g.ID)
	if err != nil {
		return fmt.Errorf("update guest: %w", err)
	}
	return nil
}

func (r *GuestRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

func (r *GuestRepo) list(ctx context.Context, query string, args ...any) ([]*domain.GuestEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	var res []*domain.GuestEntry
	for rows.Next() {
		g := &domain.GuestEntry{}
		if err := rows.Scan(&g.ID, &g.JudgeID, &g.Name, &g.IDNumber, &g.Phone, &g.Email, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		res = append(res, g)
	}
	return res, nil
}

type NoticeRepo struct {
	db *sql.DB
}

func NewNoticeRepo(db *sql.DB) *NoticeRepo { return &NoticeRepo{db: db} }

var _ domain.NoticeRepository = (*NoticeRepo)(nil)

func (r *NoticeRepo) Create(ctx context.Context, n *domain.Notice) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notices (title, body, type, is_urgent, file_url, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, n.Title, n.Body, n.Type, n.IsUrgent, n.FileURL, n.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return nil
}

func (r *NoticeRepo) GetByID(ctx context.Context, id int64) (*domain.Notice, error) {
	n := &domain.Notice{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, body, type, is_urgent, file_url, created_by, created_at
		FROM notices WHERE id = ?
	`, id).Scan(&n.ID, &n.Title, &n.Body, &n.Type, &n.IsUrgent, &n.FileURL, &n.CreatedBy, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return n, nil
}

func (r *NoticeRepo) List(ctx context.Context, noticeType string) ([]*domain.Notice, error) {
	query := `SELECT id, title, body, type, is_urgent, file_url, created_by, created_at FROM notices`
	var args []any
	if noticeType != "" {
		query += ` WHERE type = ?`
		args = append(args, noticeType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var res []*domain.Notice
	for rows.Next() {
		n := &domain.Notice{}
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Type, &n.IsUrgent, &n.FileURL, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		res = append(res, n)
	}
	return res, nil
}

func (r *NoticeRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

var _ domain.EventRepository = (*EventRepo)(nil)

const eventColumns = `id, title, description, location, starts_at, is_mandatory, created_by, created_at`

func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (title, description, location, starts_at, is_mandatory, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, e.Title, e.Description, e.Location, e.StartsAt, e.IsMandatory, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	e := &domain.Event{}
	err := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.IsMandatory, &e.CreatedBy, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *EventRepo) List(ctx context.Context, upcomingOnly bool) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if upcomingOnly {
		query += ` WHERE starts_at >= CURRENT_TIMESTAMP`
	}
	query += ` ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var res []*domain.Event
	for rows.Next() {
		e := &domain.Event{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.IsMandatory, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		res = append(res, e)
	}
	return res, nil
}

func (r *EventRepo) Update(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, location = ?, starts_at = ?, is_mandatory = ?
		WHERE id = ?
	`, e.Title, e.Description, e.Location, e.StartsAt, e.IsMandatory, e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (r *EventRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

type SwearingRepo struct {
	db *sql.DB
}

func NewSwearingRepo(db *sql.DB) *SwearingRepo { return &SwearingRepo{db: db} }

var _ domain.SwearingRepository = (*SwearingRepo)(nil)

const swearingColumns = `id, user_id, ceremony_choice, religious_text, created_at, updated_at`

func (r *SwearingRepo) Upsert(ctx context.Context, p *domain.SwearingPreference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swearing_preferences (user_id, ceremony_choice, religious_text, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			ceremony_choice = excluded.ceremony_choice,
			religious_text = excluded.religious_text,
			updated_at = CURRENT_TIMESTAMP
	`, p.UserID, p.CeremonyChoice, p.ReligiousText)
	if err != nil {
		return fmt.Errorf("upsert swearing preference: %w", err)
	}
	stored, err := r.GetByUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if stored != nil {
		*p = *stored
	}
	return nil
}

func (r *SwearingRepo) GetByUser(ctx context.Context, userID int64) (*domain.SwearingPreference, error) {
	p := &domain.SwearingPreference{}
	err := r.db.QueryRowContext(ctx, `SELECT `+swearingColumns+` FROM swearing_preferences WHERE user_id = ?`, userID).Scan(
		&p.ID, &p.UserID, &p.CeremonyChoice, &p.ReligiousText, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get swearing preference: %w", err)
	}
	return p, nil
}

func (r *SwearingRepo) ListAll(ctx context.Context) ([]*domain.SwearingPreference, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+swearingColumns+` FROM swearing_preferences ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list swearing preferences: %w", err)
	}
	defer rows.Close()

	var res []*domain.SwearingPreference
	for rows.Next() {
		p := &domain.SwearingPreference{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.CeremonyChoice, &p.ReligiousText, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan swearing preference: %w", err)
		}
		res = append(res, p)
	}
	return res, nil
}

func (r *SwearingRepo) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM swearing_preferences WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete swearing preference: %w", err)
	}
	return nil
}

type CourtInfoRepo struct {
	db *sql.DB
}

func NewCourtInfoRepo(db *sql.DB) *CourtInfoRepo { return &CourtInfoRepo{db: db} }

var _ domain.CourtInfoRepository = (*CourtInfoRepo)(nil)

func (r *CourtInfoRepo) Upsert(ctx context.Context, c *domain.CourtInfo) error {
	if c.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO court_info (section, title, body, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, c.Section, c.Title, c.Body)
		if err != nil {
			return fmt.Errorf("insert court info: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		c.ID = id
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE court_info SET section = ?, title = ?, body = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, c.Section, c.Title, c.Body, c.ID)
	if err != nil {
		return fmt.Errorf("update court info: %w", err)
	}
	return nil
}

func (r *CourtInfoRepo) ListBySection(ctx context.Context, section string) ([]*domain.CourtInfo, error) {
	query := `SELECT id, section, title, body, updated_at FROM court_info`
	var args []any
	if section != "" {
		query += ` WHERE section = ?`
		args = append(args, section)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list court info: %w", err)
	}
	defer rows.Close()

	var res []*domain.CourtInfo
	for rows.Next() {
		c := &domain.CourtInfo{}
		if err := rows.Scan(&c.ID, &c.Section, &c.Title, &c.Body, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan court info: %w", err)
		}
		res = append(res, c)
	}
	return res, nil
}

func (r *CourtInfoRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM court_info WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete court info: %w", err)
	}
	return nil
}
