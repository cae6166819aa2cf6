// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/kindred/internal/database/query"
	"github.com/tomtom215/kindred/internal/models"
)

// Settlement carries the fields written by a state transition.
type Settlement struct {
	TransactionID string
	PaymentMethod string
	SettledAt     time.Time
	Raw           []byte
	// Credit is added to a campaign total in the same transaction as a
	// completion. Ignored by FailIfPending.
	Credit *Credit
}

// Credit is a campaign increment committed together with a completion.
type Credit struct {
	CampaignID  string
	AmountMinor int64
}

const donationColumns = `id, order_id, gateway, gateway_ref, transaction_id, amount_minor, currency,
	status, user_id, donor_name, donor_email, donor_phone, anonymous, campaign_id, message,
	payment_method, raw_response, settled_at, recurring, recurrence_interval,
	recurrence_cancelled_at, created_at, updated_at`

// CreateDonation inserts a new donation. CreatedAt and UpdatedAt are set
// when zero.
func (db *DB) CreateDonation(ctx context.Context, d *models.Donation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = db.now()
	}
	d.CreatedAt = dbTime(d.CreatedAt)
	d.UpdatedAt = d.CreatedAt

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrderID, string(d.Gateway), nullString(d.GatewayRef), nullString(d.TransactionID),
		d.AmountMinor(), d.Currency, string(d.Status), nullString(d.UserID),
		nullString(d.DonorName), nullString(d.DonorEmail), nullString(d.DonorPhone), d.Anonymous,
		nullString(d.CampaignID), nullString(d.Message), nullString(d.PaymentMethod), d.RawResponse,
		nullTime(d.SettledAt), d.Recurring, nullString(string(d.RecurrenceInterval)),
		nullTime(d.RecurrenceCancelledAt), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderID, d.OrderID)
		}
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

// GetDonationByOrderID loads a donation by its external order id.
func (db *DB) GetDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE order_id = ?`, orderID)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("donation %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load donation %s: %w", orderID, err)
	}
	return d, nil
}

// GetDonation loads a donation by internal id.
func (db *DB) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = ?`, id)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("donation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load donation %s: %w", id, err)
	}
	return d, nil
}

// SetGatewayRef records the gateway's payment handle on a pending donation.
func (db *DB) SetGatewayRef(ctx context.Context, orderID, ref string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE donations SET gateway_ref = ?, updated_at = ?
		WHERE order_id = ? AND status = 'PENDING'`,
		ref, dbTime(db.now()), orderID)
	if err != nil {
		return fmt.Errorf("failed to set gateway ref: %w", err)
	}
	return checkRowsAffected(result, orderID)
}

// CompleteIfPending moves a donation from PENDING to COMPLETED in one
// conditional UPDATE. It returns false when the donation was not PENDING
// (already settled or unknown); the caller decides which by reloading.
//
// When s.Credit is set and the transition is won, the campaign increment
// commits in the same transaction. If the increment fails nothing is
// written and the donation stays PENDING.
func (db *DB) CompleteIfPending(ctx context.Context, orderID string, s Settlement) (bool, error) {
	return db.transition(ctx, orderID, models.StatusCompleted, s)
}

// FailIfPending moves a donation from PENDING to FAILED in one conditional
// UPDATE. A COMPLETED donation is never touched.
func (db *DB) FailIfPending(ctx context.Context, orderID string, s Settlement) (bool, error) {
	return db.transition(ctx, orderID, models.StatusFailed, s)
}

func (db *DB) transition(ctx context.Context, orderID string, to models.DonationStatus, s Settlement) (won bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := dbTime(db.now())
	settledAt := now
	if !s.SettledAt.IsZero() {
		settledAt = dbTime(s.SettledAt)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transition of %s: %w", orderID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE donations SET
			status = ?,
			transaction_id = COALESCE(CAST(? AS VARCHAR), transaction_id),
			payment_method = COALESCE(CAST(? AS VARCHAR), payment_method),
			raw_response = ?,
			settled_at = ?,
			updated_at = ?
		WHERE order_id = ? AND status = 'PENDING'`,
		string(to), nullString(s.TransactionID), nullString(s.PaymentMethod), s.Raw,
		settledAt, now, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to transition donation %s to %s: %w", orderID, to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 1 && to == models.StatusCompleted && s.Credit != nil {
		if err = incrementRaised(ctx, tx, s.Credit.CampaignID, s.Credit.AmountMinor); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transition of %s: %w", orderID, err)
	}
	return affected == 1, nil
}

// CancelRecurrence stops future charges of a recurring donation. It is
// independent of the settlement status. Returns false when the donation is
// not recurring or was already cancelled.
func (db *DB) CancelRecurrence(ctx context.Context, orderID string, at time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE donations SET recurrence_cancelled_at = ?, updated_at = ?
		WHERE order_id = ? AND recurring AND recurrence_cancelled_at IS NULL`,
		dbTime(at), dbTime(db.now()), orderID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel recurrence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListPendingBefore returns up to limit PENDING donations created before
// cutoff, oldest first. When gateways are given only their donations are
// returned.
func (db *DB) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int, gateways ...models.Gateway) ([]*models.Donation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	names := make([]string, len(gateways))
	for i, g := range gateways {
		names[i] = string(g)
	}
	where, args := query.NewWhereBuilder().
		AddEquals("status", string(models.StatusPending)).
		AddBefore("created_at", dbTime(cutoff)).
		AddIn("gateway", names).
		BuildWithPrefix()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations `+where+`
		ORDER BY created_at ASC
		LIMIT `+strconv.Itoa(limit),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending donations: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*models.Donation, error) {
	var (
		d                                             models.Donation
		gateway, status                               string
		gatewayRef, txnID, userID, name, email, phone sql.NullString
		campaignID, message, method, interval         sql.NullString
		amountMinor                                   int64
		settledAt, cancelledAt                        sql.NullTime
		raw                                           []byte
	)
	err := row.Scan(&d.ID, &d.OrderID, &gateway, &gatewayRef, &txnID, &amountMinor, &d.Currency,
		&status, &userID, &name, &email, &phone, &d.Anonymous, &campaignID, &message,
		&method, &raw, &settledAt, &d.Recurring, &interval,
		&cancelledAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Gateway = models.Gateway(gateway)
	d.Status = models.DonationStatus(status)
	d.Amount = models.FromMinor(amountMinor)
	d.GatewayRef = gatewayRef.String
	d.TransactionID = txnID.String
	d.UserID = userID.String
	d.DonorName = name.String
	d.DonorEmail = email.String
	d.DonorPhone = phone.String
	d.CampaignID = campaignID.String
	d.Message = message.String
	d.PaymentMethod = method.String
	d.RecurrenceInterval = models.RecurrenceInterval(interval.String)
	d.RawResponse = raw
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	if settledAt.Valid {
		t := settledAt.Time.UTC()
		d.SettledAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		d.RecurrenceCancelledAt = &t
	}
	return &d, nil
}

func checkRowsAffected(result sql.Result, key string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}
