package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "opportunity-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CollectConfig holds settings for the collection stage.
type CollectConfig struct {
	HTTPConfig `yaml:",inline"`

	// WindowDays is how far back the posted-date window reaches (default 30).
	WindowDays int `json:"window_days" yaml:"window_days"`

	// PageSize is the page size for paginated sources (default 1000).
	PageSize int `json:"page_size" yaml:"page_size"`

	// EnableSAM, EnableGSAEBuy, and EnableDIBBS control which connectors run.
	EnableSAM     bool `json:"enable_sam" yaml:"enable_sam"`
	EnableGSAEBuy bool `json:"enable_gsa_ebuy" yaml:"enable_gsa_ebuy"`
	EnableDIBBS   bool `json:"enable_dibbs" yaml:"enable_dibbs"`

	// SAMAPIKey authenticates against the SAM.gov opportunities API.
	SAMAPIKey string `json:"sam_api_key,omitempty" yaml:"sam_api_key,omitempty"`

	// NoticeTypes are the SAM.gov notice-type codes to request
	// (default "o" and "k").
	NoticeTypes []string `json:"notice_types,omitempty" yaml:"notice_types,omitempty"`
}

// ClassifyConfig holds the product-relatedness heuristics.
type ClassifyConfig struct {
	// ProductCodeLow and ProductCodeHigh bound the numeric PSC prefix range
	// treated as product-related (defaults 10 and 69; 70-99 are services).
	ProductCodeLow  int `json:"product_code_low" yaml:"product_code_low"`
	ProductCodeHigh int `json:"product_code_high" yaml:"product_code_high"`

	// Keywords override the built-in product keyword list when non-empty.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// DedupeConfig holds settings for the deduplication stage. The threshold
// and windows are policy knobs, not algorithmic requirements.
type DedupeConfig struct {
	// SimilarityThreshold is the minimum score for a duplicate match (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// DateWindowDays bounds the candidate search around the target's
	// posted date (default 14).
	DateWindowDays int `json:"date_window_days" yaml:"date_window_days"`

	// CandidateCap limits the candidate set per target (default 50).
	CandidateCap int `json:"candidate_cap" yaml:"candidate_cap"`

	// BatchLimit is the maximum number of targets per batch run (default 100).
	BatchLimit int `json:"batch_limit" yaml:"batch_limit"`

	// RecencyWindowDays restricts batch targets to recently created
	// records (default 7).
	RecencyWindowDays int `json:"recency_window_days" yaml:"recency_window_days"`

	// DescriptionPrefix truncates descriptions before scoring (default 500).
	DescriptionPrefix int `json:"description_prefix" yaml:"description_prefix"`

	// PlatformAuthority orders source platforms from most to least
	// authoritative for master election (default SAM, GSA_EBUY, DIBBS).
	PlatformAuthority []string `json:"platform_authority,omitempty" yaml:"platform_authority,omitempty"`
}

// StoreConfig holds settings for the opportunity store.
type StoreConfig struct {
	// DataDir is the base directory for the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// StandardizeConfig holds settings for the standardization pass.
type StandardizeConfig struct {
	// AliasFile is an optional YAML file of agency alias mappings; when
	// empty the built-in table is used.
	AliasFile string `json:"alias_file,omitempty" yaml:"alias_file,omitempty"`

	// BatchLimit is the maximum number of records per pass (default 500).
	BatchLimit int `json:"batch_limit" yaml:"batch_limit"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Collect     CollectConfig     `json:"collect" yaml:"collect"`
	Classify    ClassifyConfig    `json:"classify" yaml:"classify"`
	Dedupe      DedupeConfig      `json:"dedupe" yaml:"dedupe"`
	Standardize StandardizeConfig `json:"standardize" yaml:"standardize"`
	Store       StoreConfig       `json:"store" yaml:"store"`
}
