package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"coop-loans/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Migrations returns the schema statements, one per Exec. The DDL sticks to
// types both SQLite and PostgreSQL accept; timestamps are stored as text.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS members (
			id                      TEXT PRIMARY KEY,
			name                    TEXT NOT NULL,
			cumulative_contribution DOUBLE PRECISION NOT NULL DEFAULT 0,
			has_active_loan         INTEGER NOT NULL DEFAULT 0,
			created_at              TEXT NOT NULL,
			updated_at              TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contributions (
			id          TEXT PRIMARY KEY,
			member_id   TEXT NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contributions_member ON contributions(member_id)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id                    TEXT PRIMARY KEY,
			member_id             TEXT NOT NULL,
			tier                  TEXT NOT NULL,
			principal             DOUBLE PRECISION NOT NULL,
			monthly_interest_rate DOUBLE PRECISION NOT NULL,
			duration_months       INTEGER NOT NULL,
			status                TEXT NOT NULL,
			created_at            TEXT NOT NULL,
			closed_at             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id)`,

		`CREATE TABLE IF NOT EXISTS installments (
			loan_id            TEXT NOT NULL,
			installment_number INTEGER NOT NULL,
			principal_amount   DOUBLE PRECISION NOT NULL,
			interest_amount    DOUBLE PRECISION NOT NULL,
			total_amount       DOUBLE PRECISION NOT NULL,
			due_date           TEXT NOT NULL,
			paid_at            TEXT,
			PRIMARY KEY (loan_id, installment_number)
		)`,
	}
}

// SQLStore implements MemberRepository and LoanRepository on database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore opens the database, applies migrations and returns a store.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver}
	for _, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ─── Members ────────────────────────────────────────────────────────────────

func (s *SQLStore) CreateMember(ctx context.Context, m domain.Member) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO members (id, name, cumulative_contribution, has_active_loan, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		m.ID, m.Name, m.CumulativeContribution, boolToInt(m.HasActiveLoan),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var (
		m                domain.Member
		active           int
		created, updated string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.CumulativeContribution, &active, &created, &updated); err != nil {
		return domain.Member{}, err
	}
	var err error
	if m.CreatedAt, err = parseTime(created); err != nil {
		return domain.Member{}, fmt.Errorf("member %s created_at: %w", m.ID, err)
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Member{}, fmt.Errorf("member %s updated_at: %w", m.ID, err)
	}
	m.HasActiveLoan = active != 0
	return m, nil
}

const memberColumns = `id, name, cumulative_contribution, has_active_loan, created_at, updated_at`

func (s *SQLStore) GetMember(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+memberColumns+` FROM members WHERE id = ?`), id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *SQLStore) AddContribution(ctx context.Context, c domain.Contribution) (domain.Member, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE members SET cumulative_contribution = cumulative_contribution + ?, updated_at = ? WHERE id = ?`),
		c.Amount, formatTime(c.RecordedAt), c.MemberID)
	if err != nil {
		return domain.Member{}, fmt.Errorf("update contribution total: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Member{}, domain.ErrMemberNotFound
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO contributions (id, member_id, amount, recorded_at) VALUES (?, ?, ?, ?)`),
		c.ID, c.MemberID, c.Amount, formatTime(c.RecordedAt)); err != nil {
		return domain.Member{}, fmt.Errorf("insert contribution: %w", err)
	}

	m, err := scanMember(tx.QueryRowContext(ctx, s.rebind(`SELECT `+memberColumns+` FROM members WHERE id = ?`), c.MemberID))
	if err != nil {
		return domain.Member{}, fmt.Errorf("reload member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

func (s *SQLStore) ListContributions(ctx context.Context, memberID string) ([]domain.Contribution, error) {
	if _, err := s.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, member_id, amount, recorded_at FROM contributions WHERE member_id = ? ORDER BY recorded_at`), memberID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []domain.Contribution
	for rows.Next() {
		var (
			c        domain.Contribution
			recorded string
		)
		if err := rows.Scan(&c.ID, &c.MemberID, &c.Amount, &recorded); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("contribution %s recorded_at: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetActiveLoan(ctx context.Context, memberID string, active bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE members SET has_active_loan = ? WHERE id = ?`), boolToInt(active), memberID)
	if err != nil {
		return fmt.Errorf("set active loan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// ─── Loans ──────────────────────────────────────────────────────────────────

func (s *SQLStore) SaveLoan(ctx context.Context, loan domain.Loan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO loans (id, member_id, tier, principal, monthly_interest_rate, duration_months, status, created_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, closed_at = excluded.closed_at`),
		loan.ID, loan.MemberID, loan.Tier.String(), loan.Principal, loan.MonthlyInterestRate,
		loan.DurationMonths, string(loan.Status), formatTime(loan.CreatedAt), nullableTime(loan.ClosedAt),
	); err != nil {
		return fmt.Errorf("upsert loan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO installments (loan_id, installment_number, principal_amount, interest_amount, total_amount, due_date, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (loan_id, installment_number) DO UPDATE SET paid_at = excluded.paid_at`))
	if err != nil {
		return fmt.Errorf("prepare installments: %w", err)
	}
	defer stmt.Close()

	for _, inst := range loan.Installments {
		if _, err := stmt.ExecContext(ctx,
			loan.ID, inst.InstallmentNumber, inst.PrincipalAmount, inst.InterestAmount,
			inst.TotalAmount, formatTime(inst.DueDate), nullableTime(inst.PaidAt),
		); err != nil {
			return fmt.Errorf("upsert installment %d: %w", inst.InstallmentNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const loanColumns = `id, member_id, tier, principal, monthly_interest_rate, duration_months, status, created_at, closed_at`

func scanLoan(row rowScanner) (domain.Loan, error) {
	var (
		loan    domain.Loan
		tier    string
		status  string
		created string
		closed  sql.NullString
	)
	if err := row.Scan(&loan.ID, &loan.MemberID, &tier, &loan.Principal, &loan.MonthlyInterestRate,
		&loan.DurationMonths, &status, &created, &closed); err != nil {
		return domain.Loan{}, err
	}
	var err error
	if loan.Tier, err = domain.ParseTier(tier); err != nil {
		return domain.Loan{}, fmt.Errorf("loan %s: %w", loan.ID, err)
	}
	if loan.CreatedAt, err = parseTime(created); err != nil {
		return domain.Loan{}, fmt.Errorf("loan %s created_at: %w", loan.ID, err)
	}
	if loan.ClosedAt, err = parseNullableTime(closed); err != nil {
		return domain.Loan{}, fmt.Errorf("loan %s closed_at: %w", loan.ID, err)
	}
	loan.Status = domain.LoanStatus(status)
	return loan, nil
}

func (s *SQLStore) loadInstallments(ctx context.Context, loan *domain.Loan) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT installment_number, principal_amount, interest_amount, total_amount, due_date, paid_at
		 FROM installments WHERE loan_id = ? ORDER BY installment_number`), loan.ID)
	if err != nil {
		return fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	loan.Installments = loan.Installments[:0]
	for rows.Next() {
		var (
			inst domain.ScheduledInstallment
			due  string
			paid sql.NullString
		)
		if err := rows.Scan(&inst.InstallmentNumber, &inst.PrincipalAmount, &inst.InterestAmount,
			&inst.TotalAmount, &due, &paid); err != nil {
			return fmt.Errorf("scan installment: %w", err)
		}
		if inst.DueDate, err = parseTime(due); err != nil {
			return fmt.Errorf("installment due_date: %w", err)
		}
		if inst.PaidAt, err = parseNullableTime(paid); err != nil {
			return fmt.Errorf("installment paid_at: %w", err)
		}
		loan.Installments = append(loan.Installments, inst)
	}
	return rows.Err()
}

func (s *SQLStore) GetLoan(ctx context.Context, id string) (domain.Loan, error) {
	loan, err := scanLoan(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+loanColumns+` FROM loans WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Loan{}, domain.ErrLoanNotFound
	}
	if err != nil {
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	if err := s.loadInstallments(ctx, &loan); err != nil {
		return domain.Loan{}, err
	}
	return loan, nil
}

func (s *SQLStore) ListLoansByMember(ctx context.Context, memberID string) ([]domain.Loan, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+loanColumns+` FROM loans WHERE member_id = ? ORDER BY created_at`), memberID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before loading installments: SQLite runs on a single connection.
	rows.Close()

	for i := range loans {
		if err := s.loadInstallments(ctx, &loans[i]); err != nil {
			return nil, err
		}
	}
	return loans, nil
}
