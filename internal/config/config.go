// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/JakeFAU/product-spec-scraper/internal/assemble"
	"github.com/JakeFAU/product-spec-scraper/internal/browser"
	"github.com/JakeFAU/product-spec-scraper/internal/extract"
	"github.com/JakeFAU/product-spec-scraper/internal/metrics"
	"github.com/JakeFAU/product-spec-scraper/internal/product"
	"github.com/JakeFAU/product-spec-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/product-spec-scraper/internal/readiness"
	"github.com/JakeFAU/product-spec-scraper/internal/sink"
	"github.com/JakeFAU/product-spec-scraper/internal/storage/postgres"
)

// EnvPrefix prefixes environment overrides, e.g. SPECSCRAPER_BROWSER_HEADLESS.
const EnvPrefix = "SPECSCRAPER"

// Output backends.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config captures every scraper knob.
type Config struct {
	Browser    browser.Config    `mapstructure:"browser"`
	Readiness  readiness.Config  `mapstructure:"readiness"`
	Selectors  extract.Selectors `mapstructure:"selectors"`
	Extract    ExtractConfig     `mapstructure:"extract"`
	Identifier assemble.Config   `mapstructure:"identifier"`
	Output     OutputConfig      `mapstructure:"output"`
	DB         postgres.Config   `mapstructure:"db"`
	PubSub     pubsub.Config     `mapstructure:"pubsub"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// ExtractConfig tunes how strategy outputs are combined.
type ExtractConfig struct {
	MergePolicy string `mapstructure:"merge_policy"`
}

// OutputConfig picks the blob backend and names artifacts.
type OutputConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	sink.Config `mapstructure:",squash"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	b := browser.DefaultConfig()
	v.SetDefault("browser.headless", b.Headless)
	v.SetDefault("browser.no_sandbox", b.NoSandbox)
	v.SetDefault("browser.viewport_width", b.ViewportWidth)
	v.SetDefault("browser.viewport_height", b.ViewportHeight)
	v.SetDefault("browser.navigation_timeout", b.NavigationTimeout)
	v.SetDefault("browser.wait_until", b.WaitUntil)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")

	r := readiness.DefaultConfig()
	v.SetDefault("readiness.settle_delay", r.SettleDelay)
	v.SetDefault("readiness.consent_selectors", r.ConsentSelectors)
	v.SetDefault("readiness.consent_timeout", r.ConsentTimeout)
	v.SetDefault("readiness.consent_delay", r.ConsentDelay)
	v.SetDefault("readiness.component_selector", r.ComponentSelector)
	v.SetDefault("readiness.component_timeout", r.ComponentTimeout)
	v.SetDefault("readiness.scroll_step", r.ScrollStep)
	v.SetDefault("readiness.scroll_interval", r.ScrollInterval)
	v.SetDefault("readiness.max_scroll_steps", r.MaxScrollSteps)
	v.SetDefault("readiness.final_settle", r.FinalSettle)

	s := extract.DefaultSelectors()
	v.SetDefault("selectors.list_section", s.ListSection)
	v.SetDefault("selectors.list_title", s.ListTitle)
	v.SetDefault("selectors.list_item", s.ListItem)
	v.SetDefault("selectors.subtitle", s.Subtitle)
	v.SetDefault("selectors.link", s.Link)
	v.SetDefault("selectors.paragraph", s.Paragraph)
	v.SetDefault("selectors.wrapped_paragraph", s.WrappedParagraph)
	v.SetDefault("selectors.table_section", s.TableSection)
	v.SetDefault("selectors.table_title", s.TableTitle)
	v.SetDefault("selectors.table_data", s.TableData)
	v.SetDefault("selectors.default_list_title", s.DefaultListTitle)
	v.SetDefault("selectors.default_table_title", s.DefaultTableTitle)
	v.SetDefault("selectors.missing_value", s.MissingValue)
	v.SetDefault("extract.merge_policy", string(product.MergeLastWriteWins))

	id := assemble.DefaultConfig()
	v.SetDefault("identifier.section", id.Section)
	v.SetDefault("identifier.field", id.Field)
	v.SetDefault("identifier.fallback", id.Fallback)

	out := sink.DefaultConfig()
	v.SetDefault("output.backend", BackendLocal)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.record_name", out.RecordName)
	v.SetDefault("output.screenshot_name", out.ScreenshotName)
	v.SetDefault("output.error_screenshot_name", out.ErrorScreenshotName)
	v.SetDefault("output.save_html", false)
	v.SetDefault("output.html_name", out.HTMLName)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "scrape_results")
	v.SetDefault("db.max_conns", 2)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.create_table", false)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "specscraper")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and cross-field rules.
func (c Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	if err := c.Readiness.Validate(); err != nil {
		return err
	}
	if err := c.Selectors.WithDefaults().Validate(); err != nil {
		return err
	}
	if _, err := product.ParseMergePolicy(c.Extract.MergePolicy); err != nil {
		return fmt.Errorf("extract.merge_policy: %w", err)
	}
	switch c.Output.Backend {
	case BackendLocal, BackendMemory:
	case BackendGCS:
		if c.Output.GCSBucket == "" {
			return fmt.Errorf("output.gcs_bucket must be set when output.backend is gcs")
		}
	default:
		return fmt.Errorf("output.backend %q must be one of local, gcs, memory", c.Output.Backend)
	}
	if err := c.Output.Config.Validate(); err != nil {
		return err
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// MergePolicy returns the parsed merge policy. Load has already validated it.
func (c Config) MergePolicy() product.MergePolicy {
	p, err := product.ParseMergePolicy(c.Extract.MergePolicy)
	if err != nil {
		return product.MergeLastWriteWins
	}
	return p
}
