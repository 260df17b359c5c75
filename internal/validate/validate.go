// Package validate holds the precondition checks run before each pipeline stage.
// Checks never halt anything themselves; callers collect failures with Run and
// stop when the list is non-empty.
package validate

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

// Check names.
const (
	CheckFile   = "file"
	CheckAPIKey = "api_key"
	CheckQuery  = "query"
)

// Failure is a failed check with a message meant for the user.
type Failure struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

func (f Failure) Error() string { return f.Message }

// Check is a deferred predicate.
type Check func() (bool, Failure)

// Run evaluates every check and returns the failures in order.
func Run(checks ...Check) []Failure {
	var failures []Failure
	for _, c := range checks {
		if ok, f := c(); !ok {
			failures = append(failures, f)
		}
	}
	return failures
}

// Messages joins failure messages for display.
func Messages(failures []Failure) string {
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// File reports whether doc has any text to work with.
func File(doc *models.Document) (bool, Failure) {
	if doc == nil || len(doc.Pages) == 0 {
		return false, Failure{Check: CheckFile, Message: "Cannot read document! Make sure the document has selectable text or is a supported format."}
	}
	if !doc.HasText() {
		return false, Failure{Check: CheckFile, Message: fmt.Sprintf("Document %s has no readable text.", doc.Name)}
	}
	return true, Failure{}
}

// keyPrefixes lists the required key prefix per provider. Providers missing
// here only need a non-empty key; keyless providers need none.
var keyPrefixes = map[string]string{
	"openai": "sk-",
}

var keyless = map[string]bool{
	"debug": true,
	"onnx":  true,
}

// NeedsAPIKey reports whether provider requires a credential.
func NeedsAPIKey(provider string) bool {
	return !keyless[strings.ToLower(provider)]
}

// APIKey checks the credential for provider.
func APIKey(provider, key string) (bool, Failure) {
	provider = strings.ToLower(provider)
	if !NeedsAPIKey(provider) {
		return true, Failure{}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, Failure{Check: CheckAPIKey, Message: fmt.Sprintf("Please set an API key for %s.", provider)}
	}
	if prefix, ok := keyPrefixes[provider]; ok && !strings.HasPrefix(key, prefix) {
		return false, Failure{Check: CheckAPIKey, Message: fmt.Sprintf("Invalid %s API key! It should start with %q.", provider, prefix)}
	}
	return true, Failure{}
}

// Query reports whether q contains a question.
func Query(q string) (bool, Failure) {
	if strings.TrimSpace(q) == "" {
		return false, Failure{Check: CheckQuery, Message: "Please enter a question!"}
	}
	return true, Failure{}
}

// FileCheck defers File.
func FileCheck(doc *models.Document) Check { return func() (bool, Failure) { return File(doc) } }

// APIKeyCheck defers APIKey.
func APIKeyCheck(provider, key string) Check {
	return func() (bool, Failure) { return APIKey(provider, key) }
}

// QueryCheck defers Query.
func QueryCheck(q string) Check { return func() (bool, Failure) { return Query(q) } }
