package config

const (
	defaultDataDir                  = "~/.local/share/fontana"
	defaultLogDir                   = "~/.local/share/fontana/logs"
	defaultEvergreenBaseURL         = "http://nccardinal.org/opac/extras"
	defaultEvergreenOrgUnit         = "FONTANA"
	defaultEvergreenFormat          = "holdings_xml"
	defaultEvergreenIncludes        = "{holdings_xml,acn,acp,mra}"
	defaultOverdriveOAuthURL        = "https://oauth.overdrive.com/token"
	defaultOverdriveAPIURL          = "https://api.overdrive.com"
	defaultGoodReadsBaseURL         = "https://www.goodreads.com"
	defaultOMDbBaseURL              = "http://www.omdbapi.com"
	defaultOpenLibraryBaseURL       = "http://openlibrary.org"
	defaultHTTPTimeoutSeconds       = 20
	defaultRequestsPerSecond        = 2
	defaultBurst                    = 4
	defaultBreakerThreshold         = 5
	defaultBreakerCooldownSeconds   = 60
	defaultUserAgent                = "Fontana/dev"
	defaultFailureDebounceMinutes   = 3
	defaultChunkSize                = 10
	defaultFailedBatchSize          = 10
	defaultHoldingsBatchSize        = 10
	defaultDeletedBatchSize         = 15
	defaultHoldingsMaxAgeDays       = 30
	defaultDeletedMaxAgeDays        = 7
	defaultPollIntervalSeconds      = 60
	defaultFailedIntervalSeconds    = 3600
	defaultHoldingsIntervalSeconds  = 43200
	defaultDeletedIntervalSeconds   = 3600
	defaultAlertsFrom               = "activity.assessments@fontanalib.org"
	defaultAlertsFromName           = "Staff Activity Portal"
	defaultAlertsEditURL            = "https://staff.fontanalib.org/wp-admin/post.php?post=%d&action=edit"
	defaultSMTPPort                 = 587
	defaultNotifyRequestTimeout     = 10
	defaultNotifyDedupWindowSeconds = 600
	defaultMetricsBind              = "127.0.0.1:9477"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

var (
	defaultManagerPositions = []string{
		"County Librarian",
		"Finance Officer",
		"IT Officer",
		"Regional Director",
	}
	defaultSupervisorPositions = []string{
		"Department Supervisor",
		"Branch Librarian",
		"Branch Supervisor",
		"Asst. County Librarian",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Evergreen: Evergreen{
			BaseURL:  defaultEvergreenBaseURL,
			OrgUnit:  defaultEvergreenOrgUnit,
			Format:   defaultEvergreenFormat,
			Includes: defaultEvergreenIncludes,
		},
		Overdrive: Overdrive{
			OAuthURL:  defaultOverdriveOAuthURL,
			APIURL:    defaultOverdriveAPIURL,
			Libraries: map[string]string{},
		},
		GoodReads:   GoodReads{BaseURL: defaultGoodReadsBaseURL},
		OMDb:        OMDb{BaseURL: defaultOMDbBaseURL},
		OpenLibrary: OpenLibrary{BaseURL: defaultOpenLibraryBaseURL},
		HTTP: HTTP{
			TimeoutSeconds:         defaultHTTPTimeoutSeconds,
			RequestsPerSecond:      defaultRequestsPerSecond,
			Burst:                  defaultBurst,
			BreakerThreshold:       defaultBreakerThreshold,
			BreakerCooldownSeconds: defaultBreakerCooldownSeconds,
			UserAgent:              defaultUserAgent,
		},
		Reconcile: Reconcile{
			FailureDebounceMinutes: defaultFailureDebounceMinutes,
			ChunkSize:              defaultChunkSize,
			FailedBatchSize:        defaultFailedBatchSize,
			HoldingsBatchSize:      defaultHoldingsBatchSize,
			DeletedBatchSize:       defaultDeletedBatchSize,
			HoldingsMaxAgeDays:     defaultHoldingsMaxAgeDays,
			DeletedMaxAgeDays:      defaultDeletedMaxAgeDays,
		},
		Schedule: Schedule{
			PollIntervalSeconds:     defaultPollIntervalSeconds,
			FailedIntervalSeconds:   defaultFailedIntervalSeconds,
			HoldingsIntervalSeconds: defaultHoldingsIntervalSeconds,
			DeletedIntervalSeconds:  defaultDeletedIntervalSeconds,
		},
		Alerts: Alerts{
			From:                defaultAlertsFrom,
			FromName:            defaultAlertsFromName,
			EditURL:             defaultAlertsEditURL,
			ManagerPositions:    append([]string(nil), defaultManagerPositions...),
			SupervisorPositions: append([]string(nil), defaultSupervisorPositions...),
		},
		SMTP: SMTP{Port: defaultSMTPPort},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Batch:              true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Metrics: Metrics{Bind: defaultMetricsBind},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
