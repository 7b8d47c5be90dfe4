package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

func TestEventInsertCreated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO phishing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewEventRepo(db)
	created, err := repo.Insert(context.Background(), &domain.Event{
		ID: "e1", CampaignID: "c1", RunID: "r1", RecipientID: "rc1",
		Token: "tok", Type: domain.EventOpened, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for first insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEventInsertSuppressedDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// ON CONFLICT DO NOTHING reports zero rows affected
	mock.ExpectExec("INSERT INTO phishing_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewEventRepo(db)
	created, err := repo.Insert(context.Background(), &domain.Event{
		ID: "e2", Token: "tok", Type: domain.EventOpened,
	})
	if err != nil {
		t.Fatalf("suppressed insert must not error: %v", err)
	}
	if created {
		t.Fatal("expected created=false for duplicate")
	}
}

func campaignRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "target_departments", "target_roles",
		"include_user_ids", "exclude_user_ids", "sampling_percent", "frequency",
		"start_date", "end_date", "window_start", "window_end",
		"timezone", "template_id", "privacy_mode", "retention_days", "status",
		"created_by", "created_at", "updated_at",
	}).AddRow(
		"c1", "Q3 Awareness", "desc",
		pq.StringArray{"IT"}, pq.StringArray{}, pq.StringArray{}, pq.StringArray{},
		100, "ONCE", nil, nil, "", "", "UTC", nil, "ANONYMIZED", 90, "DRAFT",
		"admin", now, now,
	)
}

func TestCampaignGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM phishing_campaigns WHERE id").
		WithArgs("c1").
		WillReturnRows(campaignRows())

	repo := NewCampaignRepo(db)
	c, err := repo.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Q3 Awareness" || c.SamplingPercent != 100 || c.Status != domain.CampaignDraft {
		t.Fatalf("campaign: %+v", c)
	}
	if len(c.TargetDepartments) != 1 || c.TargetDepartments[0] != "IT" {
		t.Fatalf("departments: %v", c.TargetDepartments)
	}
}

func TestCampaignGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM phishing_campaigns WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewCampaignRepo(db)
	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Fatalf("expected campaign not found sentinel, got %v", err)
	}
}

func TestRecipientRecordFailureReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("UPDATE phishing_recipients").
		WithArgs("rc1", "smtp timeout").
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))

	repo := NewRecipientRepo(db)
	count, err := repo.RecordFailure(context.Background(), "rc1", "smtp timeout")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestResultUpsertConflictTarget(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`ON CONFLICT \(campaign_id, day, COALESCE\(department, ''\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewResultRepo(db)
	err = repo.Upsert(context.Background(), &domain.DailyResult{
		ID: "d1", CampaignID: "c1", Day: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
