package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"pagetransform/internal/modern"
	"pagetransform/internal/sink"
	"pagetransform/internal/storage"
)

func openMemory(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New(sqlite) err=%v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func TestRepo_GetPut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openMemory(t)

	if _, err := repo.Get(ctx, "sitepages/a.aspx"); !errors.Is(err, sink.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want ErrNotFound", err)
	}

	p := modern.NewPage("a.aspx")
	p.AddSection(modern.SectionOneColumn)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := sink.Document{Path: "sitepages/a.aspx", Page: p, Properties: map[string]string{"Title": "A"}, UpdatedAt: at}
	if err := repo.Put(ctx, doc); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	doc.Published = true
	doc.Properties["Title"] = "B"
	if err := repo.Put(ctx, doc); err != nil {
		t.Fatalf("Put(upsert) err=%v", err)
	}

	got, err := repo.Get(ctx, "sitepages/a.aspx")
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !got.Published || got.Properties["Title"] != "B" || !got.UpdatedAt.Equal(at) {
		t.Fatalf("Get()=%+v", got)
	}
	if got.Page == nil || len(got.Page.Sections) != 1 {
		t.Fatalf("page=%+v", got.Page)
	}
}

func TestRepo_ThroughStagedSink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := sink.NewStaged(openMemory(t))

	h, err := s.CreatePage(ctx, "sitepages/b.aspx")
	if err != nil {
		t.Fatalf("CreatePage() err=%v", err)
	}
	if err := s.WriteSections(ctx, h, modern.NewPage("b.aspx")); err != nil {
		t.Fatalf("WriteSections() err=%v", err)
	}
	if err := s.Save(ctx, h, ""); err != nil {
		t.Fatalf("Save() err=%v", err)
	}
	if _, err := s.Open(ctx, "sitepages/b.aspx"); err != nil {
		t.Fatalf("Open() err=%v", err)
	}
}

func TestParseSQLiteTime_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantUTC string
		wantErr bool
	}{
		{name: "rfc3339nano", in: "2026-01-27T12:17:08.123456789Z", wantUTC: "2026-01-27T12:17:08.123456789Z"},
		{name: "rfc3339", in: "2026-01-27T12:17:08Z", wantUTC: "2026-01-27T12:17:08Z"},
		{name: "space_tz", in: "2026-01-27 12:17:08+00:00", wantUTC: "2026-01-27T12:17:08Z"},
		{name: "no_tz_assume_utc", in: "2026-01-27 12:17:08", wantUTC: "2026-01-27T12:17:08Z"},
		{name: "invalid", in: "not-a-time", wantErr: true},
		{name: "empty", in: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSQLiteTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSQLiteTime(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			want, _ := time.Parse(time.RFC3339Nano, tt.wantUTC)
			if !got.Equal(want) {
				t.Fatalf("got=%s want=%s", got.Format(time.RFC3339Nano), tt.wantUTC)
			}
		})
	}
}

func TestFormatSQLiteTime_RoundTrip(t *testing.T) {
	t.Parallel()
	in := time.Date(2026, 1, 27, 12, 17, 8, 123, time.FixedZone("X", 3600))
	got, err := parseSQLiteTime(formatSQLiteTime(in))
	if err != nil {
		t.Fatalf("parseSQLiteTime(formatSQLiteTime()) err=%v", err)
	}
	if !got.Equal(in) {
		t.Fatalf("round trip mismatch: got=%s want=%s", got, in)
	}
}
