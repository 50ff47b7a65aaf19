// Package datatest builds synthetic laptop listings for tests.
package datatest

import (
	"math/rand"
	"strconv"

	"laptopprice/pkg/data"
)

// Columns is the raw listing layout used by the collection.
var Columns = []string{"id", "Company", "TypeName", "Inches", "ScreenResolution", "Cpu", "Ram", "Memory", "Gpu", "OpSys", "Weight", "Price"}

var (
	companies = []struct {
		name  string
		bonus float64
	}{{"Dell", 2000}, {"HP", 0}, {"Lenovo", 1000}, {"Apple", 15000}, {"Asus", -1000}}
	types = []struct {
		name  string
		bonus float64
	}{{"Notebook", 0}, {"Ultrabook", 8000}, {"Gaming", 12000}}
	cpus = []struct {
		raw   string
		bonus float64
	}{
		{"Intel Core i7 8550U 1.8GHz", 9000},
		{"Intel Core i5 7200U 2.5GHz", 4000},
		{"Intel Core i3 6006U 2GHz", 0},
		{"Intel Celeron Dual Core N3350 1.1GHz", -3000},
		{"AMD Ryzen 1700 3GHz", 2000},
	}
	gpus = []struct {
		raw   string
		bonus float64
	}{{"Intel HD Graphics 620", 0}, {"Nvidia GeForce GTX 1050", 6000}, {"AMD Radeon 530", 2000}}
	systems = []struct {
		raw   string
		bonus float64
	}{{"Windows 10", 3000}, {"macOS", 5000}, {"Linux", 0}}
	screens = []struct {
		raw        string
		touch, ips float64
	}{
		{"1366x768", 0, 0},
		{"IPS Panel Full HD 1920x1080", 0, 1},
		{"Full HD / Touchscreen 1920x1080", 1, 0},
		{"IPS Panel Touchscreen 2560x1440", 1, 1},
	}
	rams     = []float64{4, 8, 16, 32}
	memories = []struct {
		raw      string
		ssd, hdd float64
	}{
		{"128GB SSD", 128, 0},
		{"256GB SSD", 256, 0},
		{"512GB SSD", 512, 0},
		{"1TB HDD", 0, 1000},
		{"128GB SSD +  1TB HDD", 128, 1000},
		{"500GB HDD", 0, 500},
	}
)

// price is the noiseless price of a listing built from the tables above. It
// is linear in the engineered features, so a linear model can recover it.
func price(c, t, cpu, g, os, scr, ram, mem int, weight float64) float64 {
	return 20000 +
		3000*rams[ram] +
		40*memories[mem].ssd +
		5*memories[mem].hdd -
		4000*weight +
		5000*screens[scr].touch +
		3000*screens[scr].ips +
		companies[c].bonus + types[t].bonus + cpus[cpu].bonus + gpus[g].bonus + systems[os].bonus
}

// Laptops returns n raw listings whose price follows a known linear rule
// plus noise of at most ±noise.
func Laptops(n int, seed int64, noise float64) *data.Frame {
	rnd := rand.New(rand.NewSource(seed))
	f := &data.Frame{Columns: append([]string(nil), Columns...)}
	for i := range n {
		c, t, cpu := rnd.Intn(len(companies)), rnd.Intn(len(types)), rnd.Intn(len(cpus))
		g, os, scr := rnd.Intn(len(gpus)), rnd.Intn(len(systems)), rnd.Intn(len(screens))
		ram, mem := rnd.Intn(len(rams)), rnd.Intn(len(memories))
		weight := 1.0 + float64(rnd.Intn(200))/100
		p := price(c, t, cpu, g, os, scr, ram, mem, weight) + noise*(2*rnd.Float64()-1)
		f.Rows = append(f.Rows, []string{
			strconv.Itoa(i + 1),
			companies[c].name,
			types[t].name,
			strconv.FormatFloat(13+float64(rnd.Intn(5)), 'f', 1, 64),
			screens[scr].raw,
			cpus[cpu].raw,
			strconv.FormatFloat(rams[ram], 'f', -1, 64) + "GB",
			memories[mem].raw,
			gpus[g].raw,
			systems[os].raw,
			strconv.FormatFloat(weight, 'f', 2, 64) + "kg",
			strconv.FormatFloat(p, 'f', 2, 64),
		})
	}
	return f
}
