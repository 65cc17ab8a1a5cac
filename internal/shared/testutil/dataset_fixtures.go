package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SalesCSV is a small monthly series with a numeric, a date and a
// categorical column.
const SalesCSV = `month,region,revenue,units
2023-01-01,north,100,10
2023-02-01,south,110,12
2023-03-01,north,121,11
2023-04-01,east,,9
2023-05-01,south,133.1,14
2023-06-01,north,150,15
`

// SalesColumns lists the SalesCSV header in order
var SalesColumns = []string{"month", "region", "revenue", "units"}

// PeopleJSON is an array of flat records
const PeopleJSON = `[
  {"name": "Ann", "age": 34, "city": "Basra", "joined": "2021-04-01"},
  {"name": "Bob", "age": 28, "city": "Erbil", "joined": "2022-11-15"},
  {"name": "Cara", "age": 41, "city": "Basra", "joined": "2019-07-30"}
]`

// WriteFixture writes body to name inside a fresh temporary directory and
// returns the full path.
func WriteFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}
