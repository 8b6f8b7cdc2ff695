package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"baikalctl/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// fakeConsole is an in-memory Baïkal admin console. It renders the pages the
// automation reads and reacts to clicks on elements carrying a data-fake
// action attribute.
const fakeBase = "http://fake.test/baikal"

type fakeBook struct {
	token       string
	name        string
	description string
	contacts    int
}

type fakeUser struct {
	username    string
	displayname string
	email       string
	password    string
	books       []*fakeBook
}

type fakeConsole struct {
	mu sync.Mutex

	// wizard: 0 database setup, 1 initialization panel, 2 start button
	initialized   bool
	wizardStage   int
	stuck         bool
	adminUsername string
	adminPassword string

	unreachable bool
	loggedIn    bool
	users       []*fakeUser

	page    string
	arg     string
	popups  []string
	fields  map[string]string
	url     string
	gets    int
	closed  int
	doc     *goquery.Document
	content string
}

func newFakeConsole() *fakeConsole {
	return &fakeConsole{
		initialized:   true,
		adminUsername: "admin",
		adminPassword: "adminpassword",
		fields:        map[string]string{},
	}
}

func (c *fakeConsole) launcher() browser.Launcher {
	return browser.LauncherFunc(func(ctx context.Context) (browser.Driver, error) {
		return &fakeDriver{console: c}, nil
	})
}

func (c *fakeConsole) user(username string) *fakeUser {
	for _, u := range c.users {
		if u.username == username {
			return u
		}
	}
	return nil
}

func (c *fakeConsole) addUser(username, displayname string, books ...*fakeBook) {
	c.users = append(c.users, &fakeUser{
		username:    username,
		displayname: displayname,
		email:       username,
		password:    "longenoughpw1",
		books:       books,
	})
}

func (c *fakeConsole) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

type fakeDriver struct {
	console *fakeConsole
	closed  bool
}

func (d *fakeDriver) Get(ctx context.Context, url string) error {
	c := d.console
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.closed {
		return browser.ErrClosed
	}
	c.gets++
	if c.unreachable {
		return errors.New("NS_ERROR_CONNECTION_REFUSED")
	}
	c.popups = nil
	c.fields = map[string]string{}
	c.url = url

	switch strings.TrimPrefix(url, fakeBase) {
	case "/admin/":
		switch {
		case !c.initialized:
			c.page = "maintenance"
		case c.loggedIn:
			c.page = "dashboard"
		default:
			c.page = "login"
		}
	case "/admin/install/":
		if c.initialized {
			c.page = "installed"
		} else {
			c.page = "wizard"
		}
	default:
		c.page = "notfound"
	}
	return c.render()
}

func (d *fakeDriver) Title() (string, error) {
	c := d.console
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.doc.Find("title").Text()), nil
}

func (d *fakeDriver) URL() string {
	c := d.console
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

func (d *fakeDriver) Content() (string, error) {
	c := d.console
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (d *fakeDriver) FindAll(selector string) ([]browser.Element, error) {
	c := d.console
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.closed {
		return nil, browser.ErrClosed
	}
	if c.doc == nil {
		return nil, errors.New("no page loaded")
	}
	return wrapSelection(c, c.doc.Find(selector)), nil
}

func (d *fakeDriver) Describe() string {
	return "fake console"
}

func (d *fakeDriver) Close() error {
	d.console.mu.Lock()
	defer d.console.mu.Unlock()
	d.closed = true
	d.console.closed++
	return nil
}

func wrapSelection(c *fakeConsole, sel *goquery.Selection) []browser.Element {
	out := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, fakeElement{console: c, sel: s})
	})
	return out
}

type fakeElement struct {
	console *fakeConsole
	sel     *goquery.Selection
}

func (e fakeElement) Text() (string, error) {
	return innerText(e.sel.Nodes[0]), nil
}

func (e fakeElement) Attribute(name string) (string, error) {
	value, _ := e.sel.Attr(name)
	return value, nil
}

func (e fakeElement) field() string {
	if name, ok := e.sel.Attr("name"); ok {
		return name
	}
	id, _ := e.sel.Attr("id")
	return id
}

func (e fakeElement) Clear() error {
	e.console.mu.Lock()
	defer e.console.mu.Unlock()
	e.console.fields[e.field()] = ""
	return nil
}

func (e fakeElement) Type(text string) error {
	e.console.mu.Lock()
	defer e.console.mu.Unlock()
	e.console.fields[e.field()] += text
	return nil
}

func (e fakeElement) SelectByLabel(label string) error {
	found := false
	e.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		if strings.TrimSpace(o.Text()) == label {
			found = true
		}
	})
	if !found {
		return fmt.Errorf("no option %q", label)
	}
	e.console.mu.Lock()
	defer e.console.mu.Unlock()
	e.console.fields[e.field()] = label
	return nil
}

func (e fakeElement) FindAll(selector string) ([]browser.Element, error) {
	return wrapSelection(e.console, e.sel.Find(selector)), nil
}

func (e fakeElement) Click() error {
	action, ok := e.sel.Attr("data-fake")
	if !ok {
		return nil
	}
	c := e.console
	c.mu.Lock()
	defer c.mu.Unlock()
	c.click(action)
	return c.render()
}

// click applies action to the console state, the mutex is held.
func (c *fakeConsole) click(action string) {
	verb, arg, _ := strings.Cut(action, ":")
	c.popups = nil

	switch verb {
	case "login":
		if c.fields["login"] == c.adminUsername && c.fields["password"] == c.adminPassword {
			c.loggedIn = true
			c.page = "dashboard"
		} else {
			c.popups = []string{"Login failed\nWrong username or password"}
			c.page = "login"
		}
	case "logout":
		c.loggedIn = false
		c.page = "login"
	case "nav-users":
		c.page = "users"
	case "add-user-form":
		c.page = "user-form"
	case "save-user":
		username := c.fields["data[username]"]
		switch {
		case c.user(username) != nil:
			c.popups = []string{"Validation error\nUsername already exists"}
		case c.fields["data[password]"] != c.fields["data[passwordconfirm]"]:
			c.popups = []string{"Validation error\nPasswords do not match"}
		default:
			c.users = append(c.users, &fakeUser{
				username:    username,
				displayname: c.fields["data[displayname]"],
				email:       c.fields["data[email]"],
				password:    c.fields["data[password]"],
			})
			c.popups = []string{fmt.Sprintf("User %s has been created.", username)}
		}
		c.page = "saved"
		c.arg = "users"
	case "close":
		page, owner, _ := strings.Cut(c.arg, ":")
		c.page = page
		c.arg = owner
	case "delete-user":
		c.page = "confirm-user"
		c.arg = arg
	case "confirm-user":
		kept := c.users[:0]
		for _, u := range c.users {
			if u.username != arg {
				kept = append(kept, u)
			}
		}
		c.users = kept
		c.page = "users"
	case "books":
		c.page = "books"
		c.arg = arg
	case "add-book-form":
		c.page = "book-form"
	case "save-book":
		user := c.user(c.arg)
		token := c.fields["data[uri]"]
		for _, b := range user.books {
			if b.token == token {
				c.popups = []string{"Validation error\nAddress book URI already exists"}
			}
		}
		if c.popups == nil {
			name := c.fields["data[displayname]"]
			user.books = append(user.books, &fakeBook{
				token:       token,
				name:        name,
				description: c.fields["data[description]"],
			})
			c.popups = []string{fmt.Sprintf("Address Book %s has been created.", name)}
		}
		c.page = "saved"
		c.arg = "books:" + c.arg
	case "delete-book":
		c.page = "confirm-book"
		c.arg = arg
	case "confirm-book":
		owner, token, _ := strings.Cut(arg, "/")
		user := c.user(owner)
		kept := user.books[:0]
		for _, b := range user.books {
			if b.token != token {
				kept = append(kept, b)
			}
		}
		user.books = kept
		c.page = "books"
		c.arg = owner
	case "wizard-save":
		switch {
		case c.wizardStage == 0 && !c.stuck:
			c.wizardStage = 1
		case c.wizardStage == 1 &&
			c.fields["data[timezone]"] == "UTC" &&
			c.fields["data[admin_passwordhash]"] != "" &&
			c.fields["data[admin_passwordhash]"] == c.fields["data[admin_passwordhash_confirm]"]:
			c.adminPassword = c.fields["data[admin_passwordhash]"]
			c.wizardStage = 2
		}
		c.page = "wizard"
	case "start":
		c.initialized = true
		c.url = fakeBase + "/admin/"
		c.page = "login"
	}
	c.fields = map[string]string{}
}

func esc(s string) string {
	return html.EscapeString(s)
}

func popover(pairs ...string) string {
	var b strings.Builder
	b.WriteString("<dl>")
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "<dt>%s</dt>\n<dd>%s</dd>\n", esc(pairs[i]), esc(pairs[i+1]))
	}
	b.WriteString("</dl>")
	return b.String()
}

// render rebuilds the DOM of the current page, the mutex is held.
func (c *fakeConsole) render() error {
	var b strings.Builder
	title := "Baïkal Web Admin"
	switch c.page {
	case "maintenance", "wizard":
		title = "Baïkal Maintainance"
	case "installed":
		title = ""
	}
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", esc(title))

	for _, p := range c.popups {
		title, detail, _ := strings.Cut(p, "\n")
		fmt.Fprintf(&b, `<div id="message" class="alert"><h3>%s</h3>`, esc(title))
		if detail != "" {
			fmt.Fprintf(&b, "<p>%s</p>", esc(detail))
		}
		b.WriteString("</div>")
	}

	if c.loggedIn {
		b.WriteString(`<div class="navbar"><a href="#">Dashboard</a>` +
			`<a href="#" data-fake="nav-users">Users and resources</a>` +
			`<a href="#">Settings</a>` +
			`<a href="#" data-fake="logout">Logout</a></div>`)
	}

	switch c.page {
	case "maintenance":
		b.WriteString(`<div class="jumbotron"><h1>Baïkal is not configured</h1></div>`)
	case "installed":
		b.WriteString("<p>Installation was already completed.</p>")
	case "login":
		b.WriteString(`<form><input id="login" name="login"/><input id="password" name="password" type="password"/>` +
			`<button class="btn" data-fake="login">Authenticate</button></form>`)
	case "dashboard":
		b.WriteString(`<div class="jumbotron"><h1>Dashboard</h1></div>`)
	case "users", "user-form":
		c.renderUsers(&b)
		if c.page == "user-form" {
			b.WriteString(`<form>` +
				`<input name="data[username]"/><input name="data[displayname]"/><input name="data[email]"/>` +
				`<input name="data[password]" type="password"/><input name="data[passwordconfirm]" type="password"/>` +
				`<button class="btn" data-fake="save-user">Save changes</button></form>`)
		}
	case "saved":
		b.WriteString(`<form><button class="btn" data-fake="close">Close</button></form>`)
	case "confirm-user":
		c.renderUsers(&b)
		fmt.Fprintf(&b, `<div class="alert"><a class="btn btn-danger" data-fake="confirm-user:%s">Delete %s</a>`+
			`<a class="btn">Cancel</a></div>`, esc(c.arg), esc(c.arg))
	case "books", "book-form":
		c.renderBooks(&b, c.arg)
		if c.page == "book-form" {
			b.WriteString(`<form><input name="data[uri]"/><input name="data[displayname]"/><input name="data[description]"/>` +
				`<button class="btn" data-fake="save-book">Save changes</button></form>`)
		}
	case "confirm-book":
		owner, token, _ := strings.Cut(c.arg, "/")
		c.renderBooks(&b, owner)
		name := ""
		for _, bk := range c.user(owner).books {
			if bk.token == token {
				name = bk.name
			}
		}
		fmt.Fprintf(&b, `<div class="alert"><a class="btn btn-danger" data-fake="confirm-book:%s">Delete %s</a></div>`,
			esc(c.arg), esc(name))
	case "wizard":
		switch c.wizardStage {
		case 0:
			b.WriteString(`<div class="jumbotron"><h1>Baïkal Database setup</h1></div>` +
				`<form><button class="btn" data-fake="wizard-save">Save changes</button></form>`)
		case 1:
			b.WriteString(`<div class="jumbotron"><h1>Baïkal initialization wizard</h1></div><form>` +
				`<select name="data[timezone]"><option>Europe/Paris</option><option>UTC</option></select>` +
				`<input name="data[invite_from]"/><input name="data[admin_passwordhash]"/>` +
				`<input name="data[admin_passwordhash_confirm]"/>` +
				`<button class="btn" data-fake="wizard-save">Save changes</button></form>`)
		default:
			b.WriteString(`<div class="jumbotron"><h1>Baïkal is now installed</h1></div>` +
				`<a class="btn btn-success" data-fake="start">Start using Baïkal</a>`)
		}
	}
	b.WriteString("</body></html>")

	c.content = b.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.content))
	if err != nil {
		return err
	}
	c.doc = doc
	return nil
}

func (c *fakeConsole) renderUsers(b *strings.Builder) {
	b.WriteString(`<a class="btn" data-fake="add-user-form">+ Add user</a><table class="table users"><tbody>`)
	for _, u := range c.users {
		content := popover(
			"URI", "/baikal/html/dav.php/principals/"+u.username+"/",
			"User name", u.username,
			"Email", u.email,
		)
		fmt.Fprintf(b, `<tr><td class="col-username"><strong>%s</strong><br/>%s &lt;%s&gt;</td>`+
			`<td class="col-actions"><span class="btn popover-hover" data-content="%s">Info</span>`+
			`<a class="btn" data-fake="books:%s">Address Books</a>`+
			`<a class="btn">Edit</a>`+
			`<a class="btn" data-fake="delete-user:%s">Delete</a></td></tr>`,
			esc(u.username), esc(u.displayname), esc(u.email), esc(content), esc(u.username), esc(u.username))
	}
	b.WriteString("</tbody></table>")
}

func (c *fakeConsole) renderBooks(b *strings.Builder, owner string) {
	b.WriteString(`<a class="btn" data-fake="add-book-form">+ Add address book</a><table class="table addressbooks"><tbody>`)
	for _, bk := range c.user(owner).books {
		content := popover("URI", "/baikal/html/dav.php/addressbooks/"+owner+"/"+bk.token+"/")
		fmt.Fprintf(b, `<tr><td class="col-displayname">%s</td><td class="col-contacts">%d</td>`+
			`<td class="col-description">%s</td>`+
			`<td class="col-actions"><span class="btn popover-hover" data-content="%s">Info</span>`+
			`<a class="btn">Edit</a>`+
			`<a class="btn" data-fake="delete-book:%s/%s">Delete</a></td></tr>`,
			esc(bk.name), bk.contacts, esc(bk.description), esc(content), esc(owner), esc(bk.token))
	}
	b.WriteString("</tbody></table>")
}
