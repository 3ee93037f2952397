package settings

import (
	"bufio"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var Settings *AppSettings

type AppSettings struct {
	SQLiteDatabase string
	Port           string
	WebhookSecret  string
	NotifyURL      string
	AppsDir        string
	HashKey        string
	Debug          bool
}

func NewSettings() *AppSettings {
	settings := AppSettings{
		SQLiteDatabase: getEnvOrDefault("SIMPLERELEASE_DB_PATH", "file:.///db.sqlite"),
		Port:           getEnvOrDefault("SIMPLERELEASE_PORT", ":8080"),
		WebhookSecret:  os.Getenv("SIMPLERELEASE_WEBHOOK_SECRET"),
		NotifyURL:      os.Getenv("SIMPLERELEASE_NOTIFY_URL"),
		AppsDir:        getEnvOrDefault("SIMPLERELEASE_APPS_DIR", "./apps"),
		HashKey:        os.Getenv("SIMPLERELEASE_HASH_KEY"),
	}
	settings.Debug, _ = strconv.ParseBool(os.Getenv("SIMPLERELEASE_DEBUG"))
	if !strings.HasPrefix(settings.Port, ":") {
		settings.Port = ":" + settings.Port
	}
	return &settings
}

func getEnvOrDefault(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func (as *AppSettings) SQLiteDbString(readonly bool) string {
	params := make(url.Values)
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "foreign_keys(ON)")
	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_txlock", "immediate")
		params.Add("mode", "rwc")
	}

	return as.SQLiteDatabase + "?" + params.Encode()
}

var dotenvLineRe = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*=.+$`)

// ReadDotenv exports KEY=value lines from path. Variables already present in
// the environment win over the file.
func ReadDotenv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || !dotenvLineRe.MatchString(line) {
			continue
		}
		name, value, _ := strings.Cut(line, "=")
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// AppendDotenv persists a generated value so the next start reuses it.
func AppendDotenv(path, name, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(name + "=" + value + "\n")
	return err
}
