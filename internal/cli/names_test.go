package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ksyq12/pleskcert/internal/panel"
)

func namesAPI(t *testing.T) *panel.MockAPI {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "get_names.xml"))
	if err != nil {
		t.Fatal(err)
	}
	return panel.NewMockAPI(string(data))
}

func TestRunNames(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		api := namesAPI(t)
		buf := useDeps(t, NewMockDeps().WithAPI(api).Build())
		jsonOutput = true

		if err := runNames(nil, nil); err != nil {
			t.Fatalf("runNames failed: %v", err)
		}
		var items []nameItem
		if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		want := []nameItem{
			{Domain: "example.com", Display: "example.com"},
			{Domain: "xn--mnchen-3ya.de", Display: "münchen.de"},
		}
		if !reflect.DeepEqual(items, want) {
			t.Errorf("items = %+v", items)
		}
		if api.CloseCount != 1 {
			t.Errorf("transport should be released, got %d", api.CloseCount)
		}
	})

	t.Run("table", func(t *testing.T) {
		buf := useDeps(t, NewMockDeps().WithAPI(namesAPI(t)).Build())

		if err := runNames(nil, nil); err != nil {
			t.Fatalf("runNames failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 || !strings.HasPrefix(lines[3], "xn--mnchen-3ya.de  münchen.de") {
			t.Errorf("unexpected table:\n%s", buf.String())
		}
	})

	t.Run("no domains", func(t *testing.T) {
		api := panel.NewMockAPI(`<packet><webspace><get><result><status>ok</status></result></get></webspace><site><get><result><status>ok</status></result></get></site></packet>`)
		buf := useDeps(t, NewMockDeps().WithAPI(api).Build())

		if err := runNames(nil, nil); err != nil {
			t.Fatalf("runNames failed: %v", err)
		}
		if !strings.Contains(buf.String(), "No domains found") {
			t.Errorf("unexpected output %s", buf.String())
		}
	})

	t.Run("request failure", func(t *testing.T) {
		api := panel.NewMockAPI()
		useDeps(t, NewMockDeps().WithAPI(api).Build())
		if err := runNames(nil, nil); err == nil {
			t.Error("expected error")
		}
		if api.CloseCount != 1 {
			t.Errorf("transport should be released on failure, got %d", api.CloseCount)
		}
	})
}
