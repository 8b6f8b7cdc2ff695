package console

import (
	"context"
	"fmt"
	"strings"

	"baikalctl/internal/models"
)

const report_wizard_step = "wizard.step"

// Initialize drives the first-run wizard of a fresh server, setting the admin
// password of account. The wizard is abandoned with ErrWizardDidNotConverge
// after the configured number of panels or time.
func (s *Session) Initialize(ctx context.Context, account models.Account) (message string, err error) {
	ctx, done := s.observe(ctx, "initialize")
	defer func() { done(err) }()

	s.tel.ReportDebug("initialize")
	if err := s.get(ctx, s.model.InstallPath); err != nil {
		return "", err
	}
	title, err := s.title()
	if err != nil {
		return "", err
	}
	if title == "" {
		content, err := s.driver.Content()
		if err != nil {
			return "", interfaceFailure("page content unreadable: %v", err)
		}
		if strings.Contains(content, s.model.AlreadyInstalled) {
			return "", initFailed("already initialized")
		}
	}
	if title != s.model.MaintenanceTitle {
		return "", interfaceFailure("unexpected page title: %q", title)
	}

	deadline := s.time.Now().Add(s.wizardTimeout)
	loc := s.locate()
	for step := 1; step <= s.wizardMaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.time.Now().After(deadline) {
			s.tel.ReportBroken(report_wizard_step, "timeout", step)
			return "", fmt.Errorf("%w: still running after %s", ErrWizardDidNotConverge, s.wizardTimeout)
		}

		started, err := loc.findElements("start button", s.model.StartButton, withText(s.model.StartLabel), allowNone(), andClick())
		if err != nil {
			return "", err
		}
		if len(started) > 0 {
			current := s.driver.URL()
			if !strings.HasSuffix(current, s.adminSuffix) {
				return "", initFailed("unexpected url after start button: %s", current)
			}
			s.tel.ReportDebug("initialized", step)
			return "initialized", nil
		}

		panel, err := loc.findElement("initialization title", s.model.WizardPanel)
		if err != nil {
			return "", err
		}
		panelText, err := panel.Text()
		if err != nil {
			return "", interfaceFailure("initialization title unreadable: %v", err)
		}
		heading := strings.ToLower(panelText)
		s.tel.ReportDebug("wizard step", step, heading)

		switch {
		case strings.Contains(heading, s.model.DatabaseSetup):
			err = loc.clickButton("database init save changes button", s.model.FormButtons, withText(s.model.SaveLabel))
		case strings.Contains(heading, s.model.InitializationPanel):
			err = s.fillInitializationPanel(loc, account)
		default:
			return "", initFailed("unexpected init title: %q", panelText)
		}
		if err != nil {
			return "", err
		}
	}

	s.tel.ReportBroken(report_wizard_step, "max steps", s.wizardMaxSteps)
	return "", fmt.Errorf("%w: still running after %d steps", ErrWizardDidNotConverge, s.wizardMaxSteps)
}

func (s *Session) fillInitializationPanel(loc locator, account models.Account) error {
	timezone, err := loc.findElement("init timezone selector", s.model.TimezoneSelect)
	if err != nil {
		return err
	}
	if err := timezone.SelectByLabel(s.model.Timezone); err != nil {
		return interfaceFailure("init timezone %q not selectable: %v", s.model.Timezone, err)
	}
	if err := loc.setText("init invite address", s.model.InviteFrom, ""); err != nil {
		return err
	}
	if err := loc.setText("init admin password", s.model.AdminPassword, account.Password); err != nil {
		return err
	}
	if err := loc.setText("init admin password confirmation", s.model.AdminPasswordConf, account.Password); err != nil {
		return err
	}
	return loc.clickButton("general init save changes button", s.model.FormButtons, withText(s.model.SaveLabel))
}
