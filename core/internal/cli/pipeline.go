package cli

import (
	"github.com/ProtonMail/go-crypto/openpgp"

	"drfeedback/analyzers/structlog"
	"drfeedback/analyzers/versions"
	"drfeedback/core/internal/diagnose"
	"drfeedback/registry"
	"drfeedback/report"
)

func (a *app) registry() (*registry.Registry, error) {
	var rules registry.Rules
	if a.cfg.RulesFile != "" {
		r, err := registry.LoadRules(a.cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = r
	}

	var source versions.Source
	if m := a.cfg.Manifest; m.URL != "" {
		var keyring openpgp.EntityList
		if m.Keyring != "" {
			k, err := versions.LoadKeyring(m.Keyring)
			if err != nil {
				return nil, err
			}
			keyring = k
		}
		s, err := versions.NewHTTPSource(versions.HTTPOptions{
			URL:          m.URL,
			SignatureURL: m.SignatureURL,
			Keyring:      keyring,
			Timeout:      m.Timeout,
			Retries:      m.Retries,
			Logger:       a.log,
		})
		if err != nil {
			return nil, err
		}
		source = s
	}

	return registry.New(registry.Options{
		Rules:           rules,
		DisplayPattern:  a.cfg.Display.Pattern,
		MinDisplayWidth: a.cfg.Display.MinWidth,
		StructLog: structlog.Fields{
			LevelKey:     a.cfg.StructLog.LevelKey,
			ComponentKey: a.cfg.StructLog.ComponentKey,
			MessageKey:   a.cfg.StructLog.MessageKey,
			ErrorLevel:   a.cfg.StructLog.ErrorLevel,
		},
		Manifest:        source,
		ManifestExclude: a.cfg.Manifest.Exclude,
		Logger:          a.log,
	})
}

func (a *app) driver(reg *registry.Registry) (*diagnose.Driver, error) {
	format, err := report.ParseFormat(a.cfg.Report.Format)
	if err != nil {
		return nil, err
	}
	return diagnose.New(diagnose.Options{
		Registry:         reg,
		Format:           format,
		Title:            a.cfg.Report.Title,
		IncludeArtifacts: a.cfg.Report.IncludeArtifacts,
		Workers:          a.cfg.Workers,
		Logger:           a.log,
	})
}
