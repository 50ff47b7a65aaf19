package dataprep

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"laptopprice/pkg/data"
)

// Raw listing columns consumed by Engineer.
const (
	ColRam              = "Ram"
	ColWeight           = "Weight"
	ColScreenResolution = "ScreenResolution"
	ColInches           = "Inches"
	ColCpu              = "Cpu"
	ColMemory           = "Memory"
	ColGpu              = "Gpu"
	ColOpSys            = "OpSys"
)

// Engineered feature columns.
const (
	FeatTouchscreen = "Touchscreen"
	FeatIPS         = "IPS"
	FeatCPUName     = "cpu_name"
	FeatSSD         = "SSD"
	FeatHDD         = "HDD"
	FeatGPUBrand    = "gpu_brand"
	FeatOS          = "os"
)

var sizePattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ParseRAM turns "8GB" into 8.
func ParseRAM(s string) (float64, error) {
	return parseUnit(s, "GB")
}

// ParseWeight turns "1.37kg" (or "1.37kgs") into 1.37.
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	return parseUnit(s, "kg")
}

func parseUnit(s, unit string) (float64, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), unit))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("dataprep: parse %q as %s: %w", s, unit, err)
	}
	return f, nil
}

// ScreenFlags reports whether the resolution string advertises a touchscreen or an IPS panel.
func ScreenFlags(resolution string) (touch, ips int) {
	if strings.Contains(resolution, "Touchscreen") {
		touch = 1
	}
	if strings.Contains(resolution, "IPS") {
		ips = 1
	}
	return touch, ips
}

// CPUName buckets a CPU description into one of five families.
func CPUName(cpu string) string {
	words := strings.Fields(cpu)
	if len(words) > 3 {
		words = words[:3]
	}
	name := strings.Join(words, " ")
	switch {
	case name == "Intel Core i7", name == "Intel Core i5", name == "Intel Core i3":
		return name
	case len(words) > 0 && words[0] == "Intel":
		return "Other Intel Processor"
	default:
		return "AMD Processor"
	}
}

// StorageGB extracts the size in GB of the first part of a memory description
// such as "128GB SSD + 1TB HDD" that mentions kind. TB counts as 1000 GB.
func StorageGB(memory, kind string) float64 {
	for _, part := range strings.Split(memory, "+") {
		if !strings.Contains(part, kind) {
			continue
		}
		size := 0.0
		if m := sizePattern.FindStringSubmatch(part); m != nil {
			size, _ = strconv.ParseFloat(m[1], 64)
		}
		if strings.Contains(part, "TB") {
			return size * 1000
		}
		return size
	}
	return 0
}

// GPUBrand returns the vendor word of a GPU description.
func GPUBrand(gpu string) string {
	if f := strings.Fields(gpu); len(f) > 0 {
		return f[0]
	}
	return ""
}

// OSFamily collapses operating systems into mac, windows or other.
func OSFamily(os string) string {
	switch {
	case os == "macOS" || os == "Mac OS X":
		return "mac"
	case strings.Contains(os, "Windows"):
		return "windows"
	default:
		return "other"
	}
}

// Engineer rewrites raw listing columns into model features. Columns it does
// not know pass through untouched, so an already engineered frame is returned
// unchanged. Missing raw cells stay missing.
func Engineer(raw *data.Frame) (*data.Frame, error) {
	type deriver struct {
		outs []string
		fn   func(string) ([]string, error)
	}
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	derive := map[string]deriver{
		ColRam: {[]string{ColRam}, func(s string) ([]string, error) {
			v, err := ParseRAM(s)
			return []string{num(v)}, err
		}},
		ColWeight: {[]string{ColWeight}, func(s string) ([]string, error) {
			v, err := ParseWeight(s)
			return []string{num(v)}, err
		}},
		ColScreenResolution: {[]string{FeatTouchscreen, FeatIPS}, func(s string) ([]string, error) {
			t, i := ScreenFlags(s)
			return []string{strconv.Itoa(t), strconv.Itoa(i)}, nil
		}},
		ColInches: {nil, nil},
		ColCpu: {[]string{FeatCPUName}, func(s string) ([]string, error) {
			return []string{CPUName(s)}, nil
		}},
		ColMemory: {[]string{FeatSSD, FeatHDD}, func(s string) ([]string, error) {
			return []string{num(StorageGB(s, "SSD")), num(StorageGB(s, "HDD"))}, nil
		}},
		ColGpu: {[]string{FeatGPUBrand}, func(s string) ([]string, error) {
			return []string{GPUBrand(s)}, nil
		}},
		ColOpSys: {[]string{FeatOS}, func(s string) ([]string, error) {
			return []string{OSFamily(s)}, nil
		}},
	}

	var cols []string
	for _, c := range raw.Columns {
		if d, ok := derive[c]; ok {
			cols = append(cols, d.outs...)
		} else {
			cols = append(cols, c)
		}
	}

	out := &data.Frame{Columns: cols, Rows: make([][]string, len(raw.Rows))}
	for i, r := range raw.Rows {
		row := make([]string, 0, len(cols))
		for j, c := range raw.Columns {
			d, ok := derive[c]
			if !ok {
				row = append(row, r[j])
				continue
			}
			if d.fn == nil {
				continue
			}
			if IsMissing(r[j]) {
				for range d.outs {
					row = append(row, "")
				}
				continue
			}
			vals, err := d.fn(r[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, c, err)
			}
			row = append(row, vals...)
		}
		out.Rows[i] = row
	}
	return out, nil
}
