package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownPrinter is reported for variant files without a printer suffix.
const UnknownPrinter = "Unknown"

var defaultPrinters = map[string]string{
	"K1":       "K1",
	"K1C":      "K1C",
	"K1Max":    "K1 Max",
	"K1SE":     "K1 SE",
	"K2":       "K2",
	"K2Pro":    "K2 Pro",
	"E3V3":     "Ender-3 V3",
	"E3V3KE":   "Ender-3 V3 KE",
	"E3V3Plus": "Ender-3 V3 Plus",
	"E3V3SE":   "Ender-3 V3 SE",
	"E5Max":    "CR-M4",
	"Hi":       "CR-200B",
}

// PrinterTable maps template codes to the printer names the platform
// expects. The zero value maps nothing; methods never mutate the receiver.
type PrinterTable struct {
	names map[string]string
}

// DefaultPrinterTable returns the built-in mapping.
func DefaultPrinterTable() PrinterTable {
	return PrinterTable{}.With(defaultPrinters)
}

// With returns a copy of t with overrides applied on top.
func (t PrinterTable) With(overrides map[string]string) PrinterTable {
	names := make(map[string]string, len(t.names)+len(overrides))
	for k, v := range t.names {
		names[k] = v
	}
	for k, v := range overrides {
		names[k] = v
	}
	return PrinterTable{names: names}
}

// Lookup returns the mapped name and whether code was known.
func (t PrinterTable) Lookup(code string) (string, bool) {
	name, ok := t.names[code]
	return name, ok
}

// Name returns the mapped name, or code itself when unmapped.
func (t PrinterTable) Name(code string) string {
	if code == "" {
		return UnknownPrinter
	}
	if name, ok := t.names[code]; ok {
		return name
	}
	return code
}

// Len reports the number of mapped codes.
func (t PrinterTable) Len() int { return len(t.names) }

type printersFile struct {
	Printers map[string]string `yaml:"printers"`
}

// LoadPrinterTable merges the YAML file at path over the built-in table.
// An empty path yields the built-in table.
//
//	printers:
//	  K1Max: "K1 Max"
//	  K3: "K3"
func LoadPrinterTable(path string) (PrinterTable, error) {
	t := DefaultPrinterTable()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return PrinterTable{}, fmt.Errorf("read printer table: %w", err)
	}
	var f printersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return PrinterTable{}, fmt.Errorf("parse printer table %s: %w", path, err)
	}
	return t.With(f.Printers), nil
}

// PrinterCode extracts the code from "<model>_<code>.3mf". It returns ""
// when the name has no underscore.
func PrinterCode(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return ""
	}
	return base[i+1:]
}
