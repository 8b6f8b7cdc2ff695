package console

import (
	"testing"

	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func userRow(username, content string) string {
	return `<table><tbody><tr>
		<td class="col-username"><strong>` + username + `</strong><br/>Test User &lt;` + username + `&gt;</td>
		<td class="col-actions">
			<span class="btn popover-hover" data-content="` + html.EscapeString(content) + `">Info</span>
			<a class="btn">Address Books</a>
			<a class="btn"></a>
			<a class="btn">Delete</a>
		</td>
	</tr></tbody></table>`
}

func bookRow(contacts, content string) string {
	return `<table><tbody><tr>
		<td class="col-displayname">Work</td>
		<td class="col-contacts">` + contacts + `</td>
		<td class="col-description">work contacts</td>
		<td class="col-actions">
			<span class="btn popover-hover" data-content="` + html.EscapeString(content) + `">Info</span>
			<a class="btn">Delete</a>
		</td>
	</tr></tbody></table>`
}

func TestParseUserRow(t *testing.T) {
	loc, _ := staticPage(t, userRow("t1@domain.ext", `
		<dl>
			<dt>URI</dt> <dd>/dav.php/principals/t1@domain.ext/</dd>
			<dt>User name</dt> <dd>t1@domain.ext</dd>
		</dl>`))

	rows, err := loc.tableRows("users", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	user, err := loc.parseUserRow(rows[0])
	require.NoError(t, err)
	require.Equal(t, models.User{
		Username:    "t1@domain.ext",
		Displayname: "Test User",
		URI:         "/dav.php/principals/t1@domain.ext/",
	}, user)

	buttons, err := loc.rowActionButtons("user", rows[0])
	require.NoError(t, err)
	require.Len(t, buttons, 2)
	require.Contains(t, buttons, "Address Books")
	require.Contains(t, buttons, "Delete")
}

func TestParseUserRowPopoverFailures(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no uri", `<dl><dt>User name</dt><dd>t1@domain.ext</dd></dl>`},
		{"dangling label", `<dl><dt>User name</dt><dd>t1@domain.ext</dd><dt>URI</dt><dd> </dd></dl>`},
		{"empty", ``},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			loc, _ := staticPage(t, userRow("t1@domain.ext", c.content))
			rows, err := loc.tableRows("users", false)
			require.NoError(t, err)

			_, err = loc.parseUserRow(rows[0])
			require.ErrorIs(t, err, ErrInterfaceFailure)
			require.ErrorContains(t, err, "info parse failed")
		})
	}
}

func TestParseUserRowInvalidRecord(t *testing.T) {
	loc, tel := staticPage(t, userRow("not-an-email", `<dl><dt>URI</dt><dd>/x/</dd></dl>`))
	rows, err := loc.tableRows("users", false)
	require.NoError(t, err)

	_, err = loc.parseUserRow(rows[0])
	require.ErrorIs(t, err, ErrInterfaceFailure)
	require.ErrorIs(t, err, models.ErrInvalid)
	require.True(t, tel.Has(telemetry.LevelBroken, report_rows_parse_user))
}

func TestParseBookRow(t *testing.T) {
	loc, _ := staticPage(t, bookRow("7", `<dl><dt>URI</dt><dd>/dav.php/addressbooks/t1@domain.ext/t1-domain-ext-work/</dd></dl>`))
	rows, err := loc.tableRows("addressbooks", false)
	require.NoError(t, err)

	book, err := loc.parseBookRow(rows[0], "T1@domain.ext")
	require.NoError(t, err)
	require.Equal(t, models.Book{
		Username:    "t1@domain.ext",
		Bookname:    "work",
		Description: "work contacts",
		Contacts:    7,
		URI:         "/dav.php/addressbooks/t1@domain.ext/t1-domain-ext-work/",
		Token:       "t1-domain-ext-work",
	}, book)
}

func TestParseBookRowFailures(t *testing.T) {
	loc, _ := staticPage(t, bookRow("many", `<dl><dt>URI</dt><dd>/a/b/</dd></dl>`))
	rows, err := loc.tableRows("addressbooks", false)
	require.NoError(t, err)
	_, err = loc.parseBookRow(rows[0], "t1@domain.ext")
	require.ErrorIs(t, err, ErrInterfaceFailure)
	require.ErrorContains(t, err, "not a number")

	loc, _ = staticPage(t, bookRow("1", `<dl><dt>URI</dt><dd>token</dd></dl>`))
	rows, err = loc.tableRows("addressbooks", false)
	require.NoError(t, err)
	_, err = loc.parseBookRow(rows[0], "t1@domain.ext")
	require.ErrorIs(t, err, ErrInterfaceFailure)
	require.ErrorContains(t, err, "no token")
}

func TestTableRowsEmpty(t *testing.T) {
	loc, tel := staticPage(t, `<table><tbody></tbody></table>`)

	rows, err := loc.tableRows("users", true)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Len(t, tel.Reports(telemetry.LevelWarning), 1)

	_, err = loc.tableRows("users", false)
	require.ErrorIs(t, err, ErrInterfaceFailure)
}
