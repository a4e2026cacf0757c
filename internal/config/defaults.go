package config

const (
	defaultPathMode             = string(ModeInstalled)
	defaultHeaderToken          = "Bearer"
	defaultRequestTimeout       = 60
	defaultRequestsPerSecond    = 5.0
	defaultUploadEndpointSuffix = "/silk/uploader/chunk/default/s3/"
	defaultUploadStaticSuffix   = "/silk/uploader/chunk/default/file"
	defaultChunkSizeMiB         = 64
	defaultUploadStoreFile      = "uploads.db"
	defaultReleaseSheet         = "Лист1"
	defaultReleaseTable         = "releases"
	defaultPlatformsTable       = "audioPlatformsOptions"
	defaultNotice               = "automated generate silk"
	defaultReleaseIntervalMs    = 1000
	defaultReleaseCheckpoint    = "upload_state.json"
	defaultStartDelayDays       = 14
	defaultShipmentPageLimit    = 100
	defaultShipmentFetchMs      = 500
	defaultShipmentUpdateMs     = 1000
	defaultShipmentFlagDelayMs  = 1000
	defaultShipmentSource       = "new"
	defaultShipmentTarget       = "moderation"
	defaultShipmentFlagField    = "shouldUploadReleaseToZvonko"
	defaultShipmentCheckpoint   = "shipment_state.json"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

var defaultRetryDelays = []int{0, 3, 5, 10, 20}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Mode: defaultPathMode,
		},
		API: API{
			HeaderToken:       defaultHeaderToken,
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Upload: Upload{
			ChunkSizeMiB: defaultChunkSizeMiB,
			RetryDelays:  append([]int(nil), defaultRetryDelays...),
			Progress:     true,
		},
		ReleaseUpload: ReleaseUpload{
			Sheet:          defaultReleaseSheet,
			Table:          defaultReleaseTable,
			PlatformsTable: defaultPlatformsTable,
			Notice:         defaultNotice,
			IntervalMillis: defaultReleaseIntervalMs,
			StartDelayDays: defaultStartDelayDays,
		},
		Shipment: Shipment{
			Table:                defaultReleaseTable,
			PageLimit:            defaultShipmentPageLimit,
			FetchIntervalMillis:  defaultShipmentFetchMs,
			UpdateIntervalMillis: defaultShipmentUpdateMs,
			FlagDelayMillis:      defaultShipmentFlagDelayMs,
			SourceStatus:         defaultShipmentSource,
			TargetStatus:         defaultShipmentTarget,
			FlagField:            defaultShipmentFlagField,
			Notice:               defaultNotice,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
