package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/slowstore/slowstore/lib/logger"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
	"github.com/slowstore/slowstore/lib/store/fstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitCLIConfig initializes configuration from environment variables
func InitCLIConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("slowstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// OpenStore opens the record store configured via flags and environment
// variables. A directory that does not exist yet is fine: the store starts
// empty and the directory is created on the first write. Documents that
// cannot be decoded are reported but do not block the rest of the store.
func OpenStore() (store.IStore[*model.Dynamic], error) {
	logger.InitLoggers(viper.GetString("log-level"))

	opts := fstore.DefaultOptions[*model.Dynamic]()
	opts.SaveOnChange = viper.GetBool("save-on-change")
	opts.PersistHistory = viper.GetBool("persist-history")
	opts.LoadHistory = viper.GetBool("load-history")

	st, err := fstore.New(viper.GetString("dir"), model.NewDynamic, opts)
	if err != nil {
		return nil, err
	}

	if err := st.Load(); err != nil {
		if store.IsCode(err, store.RetCDirNotFound) {
			Logger.Infof("Store directory %s does not exist yet, starting empty", st.Directory())
		} else {
			Logger.Warningf("Some documents could not be loaded: %v", err)
		}
	}

	return st, nil
}

// ParseValue interprets a value given on the command line. JSON literals
// (numbers, booleans, null, arrays, objects) become their decoded form,
// everything else stays a plain string.
func ParseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value
	}
	return raw
}

// ParseFields parses field=value arguments into an entity field map
func ParseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field assignment %q (expected field=value)", arg)
		}
		fields[name] = ParseValue(raw)
	}
	return fields, nil
}

// FormatEntity renders an entity's fields one per line, values in their
// JSON form
func FormatEntity(entity *model.Dynamic) string {
	var b strings.Builder
	for _, name := range entity.FieldNames() {
		value, _ := entity.GetField(name)
		if data, err := json.Marshal(value); err == nil {
			fmt.Fprintf(&b, "  %s = %s\n", name, data)
		} else {
			fmt.Fprintf(&b, "  %s = %v\n", name, value)
		}
	}
	return b.String()
}
