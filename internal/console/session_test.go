package console

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var admin = models.Account{Username: "admin", Password: "adminpassword"}

func newTestSession(t *testing.T, c *fakeConsole, opts Options) (*Session, *telemetry.Recorder) {
	t.Helper()
	tel := &telemetry.Recorder{}
	if opts.URL == "" {
		opts.URL = fakeBase
	}
	session, err := NewSession(c.launcher(), tel, opts)
	require.NoError(t, err)
	return session, tel
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *stepClock) Location() *time.Location {
	return time.UTC
}

func TestNewSessionRejectsRelativeURL(t *testing.T) {
	_, err := NewSession(newFakeConsole().launcher(), &telemetry.Recorder{}, Options{URL: "/baikal"})
	require.Error(t, err)
}

func TestLoginIdempotent(t *testing.T) {
	c := newFakeConsole()
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	require.NoError(t, session.Login(ctx, admin))
	require.NoError(t, session.Login(ctx, admin))
	require.Equal(t, 1, c.getCount())
	require.Equal(t, "admin", session.LoggedIn())

	require.NoError(t, session.Logout(ctx))
	require.Equal(t, "", session.LoggedIn())
	require.NoError(t, session.Logout(ctx))
	require.Equal(t, 2, c.getCount())
}

func TestLoginOtherAccountLogsOutFirst(t *testing.T) {
	c := newFakeConsole()
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	require.NoError(t, session.Login(ctx, admin))

	err := session.Login(ctx, models.Account{Username: "other", Password: "otherpassword"})
	require.ErrorIs(t, err, ErrUnexpectedServerResponse)
	require.ErrorContains(t, err, "Login failed: Wrong username or password")
	require.Equal(t, "", session.LoggedIn())
	require.False(t, c.loggedIn)
}

func TestLoginNotInitialized(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	session, _ := newTestSession(t, c, Options{})

	err := session.Login(context.Background(), admin)
	require.ErrorIs(t, err, ErrInterfaceFailure)
	require.ErrorContains(t, err, "server not initialized")
	require.Equal(t, "", session.LoggedIn())
}

func TestLoginRequiresUsername(t *testing.T) {
	c := newFakeConsole()
	session, _ := newTestSession(t, c, Options{})

	err := session.Login(context.Background(), models.Account{})
	require.ErrorIs(t, err, models.ErrInvalid)
	require.Equal(t, "", session.LoggedIn())
	require.Equal(t, 0, c.getCount())
}

func TestStatusWithoutAccount(t *testing.T) {
	c := newFakeConsole()
	session, tel := newTestSession(t, c, Options{})

	status := session.Status(context.Background(), models.Account{})
	require.True(t, strings.HasPrefix(status.Login, "failed: "), status.Login)
	require.Equal(t, 0, c.getCount())
	require.True(t, tel.Has(telemetry.LevelWarning, report_admin_status))
}

func TestNewSessionRejectsNegativeWizardSteps(t *testing.T) {
	require.Panics(t, func() {
		_, _ = NewSession(newFakeConsole().launcher(), &telemetry.Recorder{}, Options{URL: fakeBase, WizardMaxSteps: -1})
	})
}

func TestAddUser(t *testing.T) {
	c := newFakeConsole()
	session, tel := newTestSession(t, c, Options{})
	ctx := context.Background()

	req := models.AddUserRequest{Username: "t1@domain.ext", Displayname: "Test User", Password: "longenoughpw1"}
	added, err := session.AddUser(ctx, admin, req)
	require.NoError(t, err)
	require.Equal(t, req.Username, added.Username)
	require.Equal(t, req.Displayname, added.Displayname)
	require.Equal(t, "/baikal/html/dav.php/principals/t1@domain.ext/", added.URI)

	_, err = session.AddUser(ctx, admin, req)
	require.ErrorIs(t, err, ErrAddFailed)
	require.ErrorContains(t, err, "Username already exists")
	require.True(t, tel.Has(telemetry.LevelWarning, report_users_add))
	require.Len(t, c.users, 1)
}

func TestAddUserWithoutDisplayname(t *testing.T) {
	c := newFakeConsole()
	session, _ := newTestSession(t, c, Options{})

	added, err := session.AddUser(context.Background(), admin, models.AddUserRequest{
		Username: "t2@domain.ext",
		Password: "longenoughpw1",
	})
	require.NoError(t, err)
	require.Equal(t, models.User{Username: "t2@domain.ext", URI: "/baikal/html/dav.php/principals/t2@domain.ext/"}, added)
}

func TestDeleteUnknownUser(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User")
	session, _ := newTestSession(t, c, Options{})

	_, err := session.DeleteUser(context.Background(), admin, models.DeleteUserRequest{Username: "nobody@domain.ext"})
	require.ErrorIs(t, err, ErrDeleteFailed)
	require.NotErrorIs(t, err, ErrInterfaceFailure)
	require.Equal(t, "DeleteFailed", Kind(err))
	require.Len(t, c.users, 1)
}

func TestDeleteBookMissing(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User")
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	_, err := session.DeleteBook(ctx, admin, models.DeleteBookRequest{Username: "nobody@domain.ext", Token: "x"})
	require.ErrorIs(t, err, ErrDeleteFailed)
	require.ErrorContains(t, err, "user not found")

	_, err = session.DeleteBook(ctx, admin, models.DeleteBookRequest{Username: "t1@domain.ext", Token: "x"})
	require.ErrorIs(t, err, ErrDeleteFailed)
	require.ErrorContains(t, err, "book not found")
}

func TestDeleteBookMixedCaseName(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User",
		&fakeBook{token: "default", name: "Default Address Book"},
		&fakeBook{token: "work", name: "Work"},
	)
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	message, err := session.DeleteBook(ctx, admin, models.DeleteBookRequest{Username: "t1@domain.ext", Token: "default"})
	require.NoError(t, err)
	require.Equal(t, "deleted book: default", message)

	books, err := session.Books(ctx, admin, "t1@domain.ext")
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "work", books[0].Token)
}

func TestUserAndBookLifecycle(t *testing.T) {
	c := newFakeConsole()
	c.addUser("other@domain.ext", "Other User", &fakeBook{token: "other-domain-ext-main", name: "main", description: "main book", contacts: 12})
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	_, err := session.AddUser(ctx, admin, models.AddUserRequest{
		Username:    "t1@domain.ext",
		Displayname: "Test User",
		Password:    "longenoughpw1",
	})
	require.NoError(t, err)

	users, err := session.Users(ctx, admin)
	require.NoError(t, err)
	expectedUsers := []models.User{
		{Username: "other@domain.ext", Displayname: "Other User"},
		{Username: "t1@domain.ext", Displayname: "Test User"},
	}
	if diff := cmp.Diff(expectedUsers, users, cmpopts.IgnoreFields(models.User{}, "URI")); diff != "" {
		t.Fatal(diff)
	}

	book, err := session.AddBook(ctx, admin, models.AddBookRequest{
		Username:    "t1@domain.ext",
		Bookname:    "book1",
		Description: "desc",
	})
	require.NoError(t, err)
	require.Equal(t, "t1-domain-ext-book1", book.Token)

	books, err := session.Books(ctx, admin, "t1@domain.ext")
	require.NoError(t, err)
	expectedBooks := []models.Book{{
		Username:    "t1@domain.ext",
		Bookname:    "book1",
		Description: "desc",
		URI:         "/baikal/html/dav.php/addressbooks/t1@domain.ext/t1-domain-ext-book1/",
		Token:       "t1-domain-ext-book1",
	}}
	if diff := cmp.Diff(expectedBooks, books); diff != "" {
		t.Fatal(diff)
	}

	all, err := session.AllBooks(ctx, admin)
	require.NoError(t, err)
	tokens := []string{}
	for _, b := range all {
		tokens = append(tokens, b.Token)
	}
	require.Equal(t, []string{"other-domain-ext-main", "t1-domain-ext-book1"}, tokens)
	require.Equal(t, 12, all[0].Contacts)

	message, err := session.DeleteBook(ctx, admin, models.DeleteBookRequest{Username: "t1@domain.ext", Token: book.Token})
	require.NoError(t, err)
	require.Equal(t, "deleted book: t1-domain-ext-book1", message)

	books, err = session.Books(ctx, admin, "t1@domain.ext")
	require.NoError(t, err)
	require.Empty(t, books)

	message, err = session.DeleteUser(ctx, admin, models.DeleteUserRequest{Username: "t1@domain.ext"})
	require.NoError(t, err)
	require.Equal(t, "deleted user: t1@domain.ext", message)

	users, err = session.Users(ctx, admin)
	require.NoError(t, err)
	for _, u := range users {
		require.NotEqual(t, "t1@domain.ext", u.Username)
	}
}

func TestBooksEmpty(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User")
	session, tel := newTestSession(t, c, Options{})
	ctx := context.Background()

	books, err := session.Books(ctx, admin, "t1@domain.ext")
	require.NoError(t, err)
	require.NotNil(t, books)
	require.Empty(t, books)
	require.True(t, tel.Has(telemetry.LevelWarning, report_rows_table))

	books, err = session.Books(ctx, admin, "nobody@domain.ext")
	require.NoError(t, err)
	require.Empty(t, books)
}

func TestAddBookConflict(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User")
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	_, err := session.AddBook(ctx, admin, models.AddBookRequest{Username: "t1@domain.ext", Bookname: "my book"})
	require.NoError(t, err)

	// "my-book" derives the same token as "my book"
	_, err = session.AddBook(ctx, admin, models.AddBookRequest{Username: "t1@domain.ext", Bookname: "my-book"})
	require.ErrorIs(t, err, ErrAddFailed)
	require.ErrorContains(t, err, "address book exists")
	require.Len(t, c.user("t1@domain.ext").books, 1)
}

func TestAddBookUnknownUser(t *testing.T) {
	c := newFakeConsole()
	c.addUser("t1@domain.ext", "Test User")
	session, _ := newTestSession(t, c, Options{})

	_, err := session.AddBook(context.Background(), admin, models.AddBookRequest{Username: "nobody@domain.ext", Bookname: "b"})
	require.ErrorIs(t, err, ErrInterfaceFailure)
}

func TestStatusUnreachable(t *testing.T) {
	c := newFakeConsole()
	c.unreachable = true
	session, tel := newTestSession(t, c, Options{ProfileName: "default"})

	status := session.Status(context.Background(), admin)
	require.True(t, strings.HasPrefix(status.Login, "failed: "), status.Login)
	require.Contains(t, status.Login, "NS_ERROR_CONNECTION_REFUSED")
	require.Equal(t, "baikalctl", status.Name)
	require.Equal(t, fakeBase, status.URL)
	require.Equal(t, "never", status.Reset)
	require.Equal(t, "default", status.Profile)
	require.True(t, tel.Has(telemetry.LevelWarning, report_admin_status))
}

func TestResetAndStatus(t *testing.T) {
	c := newFakeConsole()
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Minute}
	session, _ := newTestSession(t, c, Options{Time: clock, Version: "1.2.3"})
	ctx := context.Background()

	require.NoError(t, session.Login(ctx, admin))

	message, err := session.Reset(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "server reset", message)
	require.Equal(t, 1, c.closed)
	require.Equal(t, "admin", session.LoggedIn())

	status := session.Status(ctx, admin)
	require.Equal(t, "success", status.Login)
	require.Equal(t, "1.2.3", status.Version)
	require.Equal(t, "fake console", status.Driver)
	require.NotEqual(t, "never", status.Reset)
	require.Contains(t, status.Uptime, "ago")
	require.Empty(t, status.Certificates)
}

func TestShutdown(t *testing.T) {
	c := newFakeConsole()
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	require.NoError(t, session.Shutdown(ctx))
	require.Equal(t, 0, c.closed)

	require.NoError(t, session.Login(ctx, admin))
	require.NoError(t, session.Shutdown(ctx))
	require.False(t, c.loggedIn)
	require.Equal(t, 1, c.closed)
	require.Equal(t, "", session.LoggedIn())
}

func TestInitialize(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	c.adminPassword = ""
	session, _ := newTestSession(t, c, Options{})
	ctx := context.Background()

	message, err := session.Initialize(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "initialized", message)
	require.True(t, c.initialized)
	require.Equal(t, admin.Password, c.adminPassword)

	require.NoError(t, session.Login(ctx, admin))

	_, err = session.Initialize(ctx, admin)
	require.ErrorIs(t, err, ErrInitFailed)
	require.ErrorContains(t, err, "already initialized")
	require.NotErrorIs(t, err, ErrWizardDidNotConverge)
}

func TestInitializeUnexpectedURL(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	session, _ := newTestSession(t, c, Options{URL: "http://fake.test/baikal"})
	session.adminSuffix = "/elsewhere/admin/"

	_, err := session.Initialize(context.Background(), admin)
	require.ErrorIs(t, err, ErrInitFailed)
	require.ErrorContains(t, err, "unexpected url after start button")
}

func TestInitializeDoesNotConverge(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	c.stuck = true
	session, tel := newTestSession(t, c, Options{WizardMaxSteps: 4})

	_, err := session.Initialize(context.Background(), admin)
	require.ErrorIs(t, err, ErrWizardDidNotConverge)
	require.ErrorIs(t, err, ErrInitFailed)
	require.Equal(t, "WizardDidNotConverge", Kind(err))
	require.ErrorContains(t, err, "4 steps")
	require.True(t, tel.Has(telemetry.LevelBroken, report_wizard_step))
}

func TestInitializeTimeout(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	c.stuck = true
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Minute}
	session, _ := newTestSession(t, c, Options{Time: clock, WizardMaxSteps: 100, WizardTimeout: 2 * time.Minute})

	_, err := session.Initialize(context.Background(), admin)
	require.ErrorIs(t, err, ErrWizardDidNotConverge)
	require.ErrorContains(t, err, "still running after 2m0s")
}

func TestInitializeCancelled(t *testing.T) {
	c := newFakeConsole()
	c.initialized = false
	session, _ := newTestSession(t, c, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session.Initialize(ctx, admin)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, c.getCount())
}
