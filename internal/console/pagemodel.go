package console

// PageModel holds every selector, label, title and message of the admin
// console the automation depends on. A console release that changes its markup
// only needs a new PageModel.
type PageModel struct {
	AdminPath   string
	InstallPath string

	MaintenanceTitle string
	AlreadyInstalled string

	PopupMessages string

	LoginUsername string
	LoginPassword string
	LoginButton   string
	LoginLabel    string

	Navbar      string
	NavbarLinks string
	UsersLink   string
	LogoutLink  string

	TableRows       string
	ColUsername     string
	ColDisplayname  string
	ColContacts     string
	ColDescription  string
	ColActions      string
	Popover         string
	PopoverContent  string
	ActionButtons   string
	URILabel        string
	UsernameLabel   string
	AddressBooksBtn string
	DeleteBtn       string

	PageButtons    string
	FormButtons    string
	AddUserLabel   string
	AddBookLabel   string
	SaveLabel      string
	CloseLabel     string
	ConfirmDelete  string
	DeletePrefix   string
	UserCreated    string
	BookCreated    string
	UserFieldName  string
	UserFieldDisp  string
	UserFieldEmail string
	UserFieldPass  string
	UserFieldConf  string
	BookFieldURI   string
	BookFieldName  string
	BookFieldDesc  string

	StartButton         string
	StartLabel          string
	WizardPanel         string
	DatabaseSetup       string
	InitializationPanel string
	TimezoneSelect      string
	Timezone            string
	InviteFrom          string
	AdminPassword       string
	AdminPasswordConf   string
}

// DefaultPageModel matches the Baïkal 0.9 admin console.
func DefaultPageModel() PageModel {
	return PageModel{
		AdminPath:   "/admin/",
		InstallPath: "/admin/install/",

		MaintenanceTitle: "Baïkal Maintainance",
		AlreadyInstalled: "Installation was already completed.",

		PopupMessages: `html > body [id="message"]`,

		LoginUsername: `body form input[id="login"]`,
		LoginPassword: `body form input[id="password"]`,
		LoginButton:   "body form button",
		LoginLabel:    "Authenticate",

		Navbar:      "div.navbar",
		NavbarLinks: "a",
		UsersLink:   "Users and resources",
		LogoutLink:  "Logout",

		TableRows:       "body table tbody tr",
		ColUsername:     "td.col-username",
		ColDisplayname:  "td.col-displayname",
		ColContacts:     "td.col-contacts",
		ColDescription:  "td.col-description",
		ColActions:      "td.col-actions",
		Popover:         "span.btn.popover-hover",
		PopoverContent:  "data-content",
		ActionButtons:   "a.btn",
		URILabel:        "URI",
		UsernameLabel:   "User name",
		AddressBooksBtn: "Address Books",
		DeleteBtn:       "Delete",

		PageButtons:    "body .btn",
		FormButtons:    "body form .btn",
		AddUserLabel:   "+ Add user",
		AddBookLabel:   "+ Add address book",
		SaveLabel:      "Save changes",
		CloseLabel:     "Close",
		ConfirmDelete:  "div.alert .btn-danger",
		DeletePrefix:   "Delete ",
		UserCreated:    "User %s has been created.",
		BookCreated:    "Address Book %s has been created.",
		UserFieldName:  `body form input[name="data[username]"]`,
		UserFieldDisp:  `body form input[name="data[displayname]"]`,
		UserFieldEmail: `body form input[name="data[email]"]`,
		UserFieldPass:  `body form input[name="data[password]"]`,
		UserFieldConf:  `body form input[name="data[passwordconfirm]"]`,
		BookFieldURI:   `body form input[name="data[uri]"]`,
		BookFieldName:  `body form input[name="data[displayname]"]`,
		BookFieldDesc:  `body form input[name="data[description]"]`,

		StartButton:         "body .btn-success",
		StartLabel:          "Start using Baïkal",
		WizardPanel:         "body .jumbotron",
		DatabaseSetup:       "database setup",
		InitializationPanel: "initialization wizard",
		TimezoneSelect:      `body form select[name="data[timezone]"]`,
		Timezone:            "UTC",
		InviteFrom:          `body form input[name="data[invite_from]"]`,
		AdminPassword:       `body form input[name="data[admin_passwordhash]"]`,
		AdminPasswordConf:   `body form input[name="data[admin_passwordhash_confirm]"]`,
	}
}
