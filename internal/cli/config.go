package cli

import (
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tnr/internal/config"
)

const masked = "********"

// effectiveConfig is the resolved configuration as "tnr config" prints it.
type effectiveConfig struct {
	ConfigDir      string `yaml:"config_dir" json:"config_dir"`
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	UploadsDir     string `yaml:"uploads_dir" json:"uploads_dir"`
	StaticDir      string `yaml:"static_dir,omitempty" json:"static_dir,omitempty"`
	Backend        string `yaml:"backend" json:"backend"`
	MySQLDSN       string `yaml:"mysql_dsn,omitempty" json:"mysql_dsn,omitempty"`
	ListenAddr     string `yaml:"listen_addr" json:"listen_addr"`
	SessionTTL     string `yaml:"session_ttl" json:"session_ttl"`
	CookieSecure   bool   `yaml:"cookie_secure" json:"cookie_secure"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" json:"max_upload_bytes"`
	Log            struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
	Google struct {
		Enabled      bool   `yaml:"enabled" json:"enabled"`
		ClientID     string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
		ClientSecret string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
		RedirectURL  string `yaml:"redirect_url,omitempty" json:"redirect_url,omitempty"`
		Issuer       string `yaml:"issuer" json:"issuer"`
	} `yaml:"google" json:"google"`
}

func newEffectiveConfig(s *config.Settings) effectiveConfig {
	ec := effectiveConfig{
		ConfigDir:      s.ConfigDir,
		DataDir:        s.DataDir,
		UploadsDir:     s.UploadsDir,
		StaticDir:      s.StaticDir,
		Backend:        s.Backend,
		MySQLDSN:       maskDSN(s.MySQLDSN),
		ListenAddr:     s.ListenAddr,
		SessionTTL:     s.SessionTTL.String(),
		CookieSecure:   s.CookieSecure,
		MaxUploadBytes: s.MaxUploadBytes,
	}
	ec.Log.Level = s.LogLevel
	ec.Log.Format = s.LogFormat
	ec.Google.Enabled = s.Google.Enabled()
	ec.Google.ClientID = s.Google.ClientID
	ec.Google.RedirectURL = s.Google.RedirectURL
	ec.Google.Issuer = s.Google.Issuer
	if s.Google.ClientSecret != "" {
		ec.Google.ClientSecret = masked
	}
	return ec
}

// maskDSN hides the password of a MySQL DSN. Unparseable DSNs are masked
// entirely.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return masked
	}
	if cfg.Passwd != "" {
		cfg.Passwd = masked
	}
	return cfg.FormatDSN()
}

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: "Print the configuration after applying config.yaml, .env, TNR_* variables\n" +
			"and flags. Secrets are masked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			ec := newEffectiveConfig(s)
			if a.jsonMode {
				return a.report(cmd.OutOrStdout(), ec, "")
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(ec); err != nil {
				return systemError(err)
			}
			return enc.Close()
		},
	}
}
