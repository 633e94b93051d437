package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/danielbachhuber/host-check-command/internal/store/connector"
	"github.com/danielbachhuber/host-check-command/internal/store/mysql"
	"github.com/danielbachhuber/host-check-command/internal/store/postgresql"
)

const (
	activePluginsValue = `a:3:{i:0;s:19:"akismet/akismet.php";i:1;s:9:"hello.php";i:2;s:19:"akismet/akismet.php";}`
	cronValue          = `a:3:{i:1700003600;a:1:{s:16:"wp_version_check";a:1:{s:32:"40cd750bba9870f18aada2478b24840a";a:3:{s:8:"schedule";s:10:"twicedaily";s:4:"args";a:0:{}s:8:"interval";i:43200;}}}i:1700000000;a:1:{s:17:"wp_update_plugins";a:0:{}}s:7:"version";i:2;}`
)

func newMockStore(t *testing.T, dialect connector.Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, dialect, NewTableNames("wp_", "")), mock
}

func TestStore_GetOptionIsCached(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("siteurl").
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow("https://example.com"))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := st.GetOption(ctx, "siteurl", "")
		if err != nil {
			t.Fatalf("GetOption: %v", err)
		}
		if got != "https://example.com" {
			t.Fatalf("got %q", got)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_GetOptionMissUsesDefault(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("upload_path").
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}))

	ctx := context.Background()
	got, err := st.GetOption(ctx, "upload_path", "fallback")
	if err != nil || got != "fallback" {
		t.Fatalf("expected default, got %q err=%v", got, err)
	}
	// the miss is cached as well
	if _, found, _ := st.LookupOption(ctx, "upload_path"); found {
		t.Fatalf("expected cached miss")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_GetOptionError(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("siteurl").
		WillReturnError(errors.New("table missing"))

	if _, err := st.GetOption(context.Background(), "siteurl", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStore_PostgresPlaceholders(t *testing.T) {
	st, mock := newMockStore(t, postgresql.NewDialect())
	mock.ExpectQuery("SELECT COUNT(*) FROM wp_posts WHERE post_status = $1").
		WithArgs("publish").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	n, err := st.CountPublishedPosts(context.Background())
	if err != nil {
		t.Fatalf("CountPublishedPosts: %v", err)
	}
	if n != 12 {
		t.Fatalf("expected 12, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_Diagnostics(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT COUNT(*) FROM wp_users").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT post_date_gmt FROM wp_posts WHERE post_status = ? ORDER BY post_date DESC LIMIT 1").
		WithArgs("publish").
		WillReturnRows(sqlmock.NewRows([]string{"post_date_gmt"}).AddRow([]byte("2024-02-01 09:30:00")))
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("active_plugins").
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow(activePluginsValue))
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("stylesheet").
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow("twentytwentyfour"))

	ctx := context.Background()
	users, err := st.CountUsers(ctx)
	if err != nil || users != 3 {
		t.Fatalf("CountUsers: %d, %v", users, err)
	}
	last, ok, err := st.LastPublishedDate(ctx)
	if err != nil || !ok || last != "2024-02-01 09:30:00" {
		t.Fatalf("LastPublishedDate: %q %v %v", last, ok, err)
	}
	plugins, err := st.ActivePlugins(ctx)
	if err != nil {
		t.Fatalf("ActivePlugins: %v", err)
	}
	if want := []string{"akismet/akismet.php", "hello.php"}; !reflect.DeepEqual(plugins, want) {
		t.Fatalf("plugins: got %v want %v", plugins, want)
	}
	theme, ok, err := st.ActiveTheme(ctx)
	if err != nil || !ok || theme != "twentytwentyfour" {
		t.Fatalf("ActiveTheme: %q %v %v", theme, ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_QueriesAreBounded(t *testing.T) {
	st, mock := newMockStore(t, postgresql.NewDialect())
	st.SetQueryTimeout(50 * time.Millisecond)
	st.SetQueryTimeout(0) // keeps the current bound

	mock.ExpectQuery("SELECT COUNT(*) FROM wp_users").
		WillDelayFor(2 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = $1 LIMIT 1").
		WithArgs("cron").
		WillDelayFor(2 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow(cronValue))

	ctx := context.Background()
	start := time.Now()
	if _, err := st.CountUsers(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("CountUsers: expected deadline exceeded, got %v", err)
	}
	if _, _, err := st.NextScheduled(ctx, "wp_version_check"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("NextScheduled: expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("queries were not cut short: %s", elapsed)
	}
}

func TestStore_LastPublishedDateNone(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT post_date_gmt FROM wp_posts WHERE post_status = ? ORDER BY post_date DESC LIMIT 1").
		WithArgs("publish").
		WillReturnRows(sqlmock.NewRows([]string{"post_date_gmt"}))
	_, ok, err := st.LastPublishedDate(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no row, got ok=%v err=%v", ok, err)
	}
}

func TestStore_NextScheduled(t *testing.T) {
	st, mock := newMockStore(t, mysql.NewDialect())
	mock.ExpectQuery("SELECT option_value FROM wp_options WHERE option_name = ? LIMIT 1").
		WithArgs("cron").
		WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow(cronValue))

	ts, ok, err := st.NextScheduled(context.Background(), "wp_version_check")
	if err != nil || !ok {
		t.Fatalf("NextScheduled: ok=%v err=%v", ok, err)
	}
	if !ts.Equal(time.Unix(1700003600, 0)) {
		t.Fatalf("unexpected timestamp %v", ts)
	}
}

func TestFindScheduled(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		hook string
		want int64
		ok   bool
	}{
		{"found", cronValue, "wp_version_check", 1700003600, true},
		{"earliest of many", `a:2:{i:20;a:1:{s:1:"h";a:0:{}}i:10;a:1:{s:1:"h";a:0:{}}}`, "h", 10, true},
		{"absent hook", cronValue, "wp_scheduled_delete", 0, false},
		{"not serialized", "garbage", "wp_version_check", 0, false},
		{"empty array", "a:0:{}", "wp_version_check", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FindScheduled(tc.raw, tc.hook)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDecodeList_OrdersByIndex(t *testing.T) {
	got, err := DecodeList(`a:3:{i:2;s:1:"c";i:0;s:1:"a";i:1;s:1:"b";}`)
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTableNames(t *testing.T) {
	tn := NewTableNames("blog_", "")
	if tn.Options != "blog_options" || tn.Users != "blog_users" || tn.Posts != "blog_posts" {
		t.Fatalf("unexpected names %+v", tn)
	}
	if err := tn.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := NewTableNames("wp_", "shared_users").Users; got != "shared_users" {
		t.Fatalf("custom user table ignored: %q", got)
	}
	if err := NewTableNames("wp_; DROP TABLE x; --", "").Validate(); err == nil {
		t.Fatalf("expected invalid prefix to be rejected")
	}
}

func TestOpen_RequiresDriverConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: DriverMySQL, TableNames: NewTableNames("wp_", "")})
	if err == nil {
		t.Fatalf("expected error without driver config")
	}
}
