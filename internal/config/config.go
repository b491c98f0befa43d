package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Addressbook/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Addressbook"
	AppID             = "com.github.tartampluch.go-addressbook"
	KeyringService    = "com.github.tartampluch.go-addressbook"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	CacheFileName     = "directory.db"
	SettingsFileName  = "config.yaml"
	EnvFileName       = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the settings file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot        = "go-addressbook"
	CmdList        = "list"
	CmdShow        = "show <id>"
	CmdSearch      = "search <query>"
	CmdEdit        = "edit <id>"
	CmdDelete      = "delete <id>"
	CmdDepartments = "departments"
	CmdServe       = "serve"
	CmdLogin       = "login <username>"
	CmdVersion     = "version"

	FlagConfig     = "config"
	FlagDebug      = "debug"
	FlagSort       = "sort"
	FlagDepartment = "department"
	FlagQuery      = "query"
	FlagOffline    = "offline"
	FlagFirstName  = "first-name"
	FlagLastName   = "last-name"
	FlagTag        = "tag"
	FlagPosition   = "position"
	FlagPhone      = "phone"
	FlagBirthday   = "birthday"

	FlagDescConfig     = "Path to the YAML settings file"
	FlagDescDebug      = "Enable debug logging to stderr"
	FlagDescSort       = "Sort mode: none, alphabetical or birthday"
	FlagDescDepartment = "Only show people from this department"
	FlagDescQuery      = "Only show people whose name or tag contains this text"
	FlagDescOffline    = "Do not contact the directory service, read the local cache only"
	FlagDescFirstName  = "New first name"
	FlagDescLastName   = "New last name"
	FlagDescTag        = "New user tag"
	FlagDescPosition   = "New job position"
	FlagDescPhone      = "New phone number"
	FlagDescBirthday   = "New birth date (YYYY-MM-DD)"

	ShortRoot        = "Browse the company directory from the terminal"
	ShortList        = "Refresh the directory and print the list"
	ShortShow        = "Print the details of one person"
	ShortSearch      = "Search the local cache by name or tag"
	ShortEdit        = "Edit a cached person record"
	ShortDelete      = "Remove a person from the local cache"
	ShortDepartments = "List the known departments"
	ShortServe       = "Refresh periodically and serve the birthday calendar feed"
	ShortLogin       = "Store the directory API token in the OS keyring"
	ShortVersion     = "Show application version"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	MsgTokenPrompt   = "API token: "
	MsgTokenSaved    = "Token saved for %s\n"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvPrefix          = "ADDRESSBOOK_"
	EnvSourceMode      = EnvPrefix + "SOURCE_MODE"
	EnvBaseURL         = EnvPrefix + "BASE_URL"
	EnvLocalPath       = EnvPrefix + "LOCAL_PATH"
	EnvUsername        = EnvPrefix + "USERNAME"
	EnvToken           = EnvPrefix + "TOKEN"
	EnvLanguage        = EnvPrefix + "LANGUAGE"
	EnvSortMode        = EnvPrefix + "SORT"
	EnvCachePath       = EnvPrefix + "CACHE_PATH"
	EnvRefreshInterval = EnvPrefix + "REFRESH_INTERVAL_MIN"
	EnvServerPort      = EnvPrefix + "SERVER_PORT"
	EnvMinDisplayMs    = EnvPrefix + "MIN_DISPLAY_MS"
	EnvReminder        = EnvPrefix + "REMINDER_TRIGGER"
)

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "ru"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyTitle           = "title_directory"
	TKeyLoading         = "state_loading"
	TKeyFailed          = "state_failed"
	TKeyStaleNotice     = "state_stale_notice"
	TKeyEmptySearch     = "empty_search_results"
	TKeyEmptyList       = "empty_list"
	TKeyNotFound        = "person_not_found"
	TKeyColName         = "col_name"
	TKeyColTag          = "col_tag"
	TKeyColDepartment   = "col_department"
	TKeyColBirthday     = "col_birthday"
	TKeyLblPosition     = "lbl_position"
	TKeyLblPhone        = "lbl_phone"
	TKeyLblBirthday     = "lbl_birthday"
	TKeyLblDepartment   = "lbl_department"
	TKeyAgeYears        = "age_years" // Requires Count (plural)
	TKeySortMode        = "lbl_sort_mode"
	TKeyEvtSummary      = "event_summary"       // Requires Name
	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Name, Age
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Name (For age 0)

	// Prefixes completed with the enum value (department label, month number).
	TKeyDeptPrefix  = "dept_"
	TKeyMonthPrefix = "month_"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb      = "web"
	SourceModeLocal    = "local"
	DefaultBaseURL     = "https://stoplight.io/mocks/kode-education/trainee-test/25143926"
	DefaultPort        = "18081"
	DefaultRefreshMin  = 60
	DefaultLanguage    = "en"
	DefaultSortMode    = "none"
	DefaultLeapYear    = 2000 // Leap year fallback for vCard dates like --02-29
	DefaultMinDisplay  = 500 * time.Millisecond
	DaysPerYear        = 365
	DisabledInterval   = 0
	InMemoryCachePath  = ":memory:"
	FallbackName       = "Unknown"
	UserIDNamespaceKey = "go-addressbook-v1" // Seed for deterministic vCard IDs
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Addressbook//Engine//EN"
	ICalCalName   = "Directory Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "goaddressbook"

	// iCal Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	// vCard Fields
	VCardUID      = "UID"
	VCardBDAY     = "BDAY"
	VCardFN       = "FN"
	VCardNickname = "NICKNAME"
	VCardOrg      = "ORG"
	VCardTitle    = "TITLE"
	VCardTel      = "TEL"
	VCardPhoto    = "PHOTO"

	// FallbackSummary is used when no localized formatter is injected.
	FallbackSummary = "Birthday: %s"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	// DateFormatFullDash is the only layout accepted for stored birthdays.
	DateFormatFullDash = "2006-01-02"

	// Extra layouts accepted when importing vCard BDAY values.
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// DefaultDisplayPattern renders "15 June 1990" style dates.
	DefaultDisplayPattern = "d MMMM yyyy"

	// ShortDisplayPattern renders the day and abbreviated month shown in list rows.
	ShortDisplayPattern = "d MMM"

	MinPort = 1
	MaxPort = 65535

	FormatUID = "%s-%d@%s"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 32 * 1024 * 1024 // 32MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	// Remote API
	RouteUsers = "/users"

	// Feed server routes
	RouteCalendar = "/birthdays.ics"
	RoutePeople   = "/people.json"
	RouteMetrics  = "/metrics"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderAuthorization   = "Authorization"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	BearerPrefix        = "Bearer "

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty   = "configuration error: local path is empty"
	ErrWebURLEmpty      = "configuration error: base URL is empty"
	ErrModeUnsupport    = "configuration error: unsupported source mode"
	ErrSortUnsupport    = "configuration error: unsupported sort mode"
	ErrSettingsRead     = "failed to read settings file"
	ErrSettingsParse    = "failed to parse settings file"
	ErrEnvFile          = "failed to load env file"
	ErrEnvValue         = "invalid environment value"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrPortNumber       = "server port must be a number"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrFetch            = "failed to fetch directory"
	ErrDecode           = "failed to decode directory payload"
	ErrRecordInvalid    = "directory record failed validation"
	ErrVCardOpen        = "failed to open vCard file"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrPersonInvalid    = "person record failed validation"
	ErrCacheOpen        = "failed to open local cache"
	ErrCacheSchema      = "failed to initialize cache schema"
	ErrCacheWrite       = "failed to write local cache"
	ErrCacheRead        = "failed to read local cache"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrConfigDir        = "could not determine user config dir"
	ErrCreateDir        = "could not create app directory"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrUnknownFeed      = "unknown feed route"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrKeyringWrite     = "failed to store token in keyring"
	ErrPipelineClosed   = "pipeline is closed"
	ErrPersonNotFound   = "person not found"
	ErrTokenEmpty       = "token is empty"
	ErrRefreshFailed    = "directory refresh failed"
	ErrCacheEmpty       = "local cache is empty, run list without --offline first"
	ErrDepartmentLookup = "unknown department"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Directory initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgRefreshStarted   = "Directory refresh started"
	MsgRefreshSuccess   = "Directory refresh successful"
	MsgRefreshFailed    = "Directory refresh failed, keeping stale data"
	MsgRefreshDiscarded = "Superseded refresh discarded"
	MsgSortFailed       = "Sorting failed, directory contains invalid data"
	MsgSortChanged      = "Sort mode changed"
	MsgPersonEdited     = "Person record updated"
	MsgPersonDeleted    = "Person record deleted"
	MsgFetchStart       = "Initiating directory download"
	MsgFetchStatus      = "Server returned error status"
	MsgFetchDone        = "Directory downloaded"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgSkippedDate      = "Skipping invalid date format"
	MsgCacheOpened      = "Local cache opened"
	MsgCacheUpdated     = "Feed cache updated"
	MsgWorkerStart      = "Background worker started"
	MsgWorkerStop       = "Worker stopping due to context cancellation"
	MsgAppStop          = "Application stopped gracefully"
	MsgAppStarting      = "Starting application"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleBadName    = "Skipping malformed locale filename"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgTokenMissing     = "Token retrieval failed (might be empty)"
	MsgSettingsDefault  = "Settings file not found, using defaults"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
	MsgGenSuccess       = "Calendar generation successful"
	MsgFeedSkipped      = "Feed not updated"
	MsgFeedsPublished   = "Feeds updated from snapshot"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeySort      = "sort"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyID        = "id"
	LogKeyCount     = "count"
	LogKeyStale     = "stale"
	LogKeyValue     = "value"
	LogKeyPath      = "path"
	LogKeyRoute     = "route"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyGen       = "generation"
	LogKeyDuration  = "duration_ms"
	LogKeyStats     = "stats"
	LogKeyTotal     = "total_people"
	LogKeyEvents    = "events"
	LogKeyWithBday  = "with_birthday"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine  = "engine"
	CompCache   = "cache"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

const (
	MetricRefreshTotal    = "addressbook_refresh_total"
	MetricRefreshDuration = "addressbook_refresh_duration_seconds"
	MetricPeopleCached    = "addressbook_people_cached"
	MetricLabelResult     = "result"

	ResultSuccess   = "success"
	ResultFailed    = "failed"
	ResultDiscarded = "discarded"
)
