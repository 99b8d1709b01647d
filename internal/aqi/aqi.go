// Package aqi downloads EPA daily county Air Quality Index files and
// aggregates them into yearly per-county statistics keyed by FIPS code.
package aqi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

// OutputName is the file name of the aggregated table.
const OutputName = "aqi_data_by_county.csv"

// Columns a daily file must carry, after lower-casing the header.
var requiredColumns = []string{"state name", "county name", "state code", "county code", "date", "aqi"}

// URL returns the EPA daily AQI archive for a year under baseURL.
func URL(baseURL string, year int) string {
	return fmt.Sprintf("%s/daily_aqi_by_county_%d.zip", strings.TrimRight(baseURL, "/"), year)
}

// Daily is one county AQI observation.
type Daily struct {
	Date       time.Time
	StateName  string
	CountyName string
	StateFP    string
	CountyFP   string
	AQI        float64
}

// dailyRow is the raw EPA row. Header names vary in case between releases
// ("county Name"), so the header is lower-cased before decoding.
type dailyRow struct {
	StateName  string `csv:"state name"`
	CountyName string `csv:"county name"`
	StateCode  string `csv:"state code"`
	CountyCode string `csv:"county code"`
	Date       string `csv:"date"`
	AQI        string `csv:"aqi"`
}

// ReadDaily decodes an EPA daily_aqi_by_county CSV. Rows without a numeric
// AQI are skipped; non-numeric state or county codes become zero.
func ReadDaily(r io.Reader) ([]Daily, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "aqi: csv header")
	}
	if err := dec.NormalizeHeader(func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}); err != nil {
		return nil, eris.Wrap(err, "aqi: normalize header")
	}
	if err := checkHeader(dec.Header()); err != nil {
		return nil, err
	}

	var out []Daily
	for line := 1; ; line++ {
		var row dailyRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "aqi: csv row %d", line)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(row.AQI), 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.Date))
		if err != nil {
			return nil, eris.Wrapf(err, "aqi: csv row %d date", line)
		}

		state, county, _ := sprawl.NormalizeFIPS(codeOrZero(row.StateCode), codeOrZero(row.CountyCode))
		out = append(out, Daily{
			Date:       date,
			StateName:  row.StateName,
			CountyName: row.CountyName,
			StateFP:    state,
			CountyFP:   county,
			AQI:        v,
		})
	}
	return out, nil
}

func checkHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("aqi: missing columns %s (have %s)",
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return nil
}

// codeOrZero drops leading zeros so padding is applied uniformly.
func codeOrZero(s string) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return "0"
	}
	return strconv.Itoa(n)
}

// CountyAQI is one county's AQI statistics for a year.
type CountyAQI struct {
	Year       int     `csv:"year"`
	StateName  string  `csv:"state_name"`
	CountyName string  `csv:"county_name"`
	AvgAQI     float64 `csv:"avg_aqi"`
	MaxAQI     float64 `csv:"max_aqi"`
	MinAQI     float64 `csv:"min_aqi"`
	Days       int     `csv:"days_count"`
	StateFP    string  `csv:"state_code"`
	CountyFP   string  `csv:"county_code"`
	FIPS       string  `csv:"fips"`
}

// Values returns the row in database column order.
func (c CountyAQI) Values() []any {
	return []any{c.FIPS, c.Year, c.StateFP, c.CountyFP, c.StateName, c.CountyName,
		c.AvgAQI, c.MaxAQI, c.MinAQI, c.Days}
}

type countyKey struct {
	year   int
	state  string
	county string
}

type dayKey struct {
	county countyKey
	date   time.Time
}

// Aggregate reduces daily observations to yearly county statistics.
// Several readings on one date are averaged into a single day first. The
// codes of a county are taken from its first observation; counties whose
// FIPS is 00000 are dropped. Output is ordered by year, state, county.
func Aggregate(days []Daily) []CountyAQI {
	type acc struct{ sum, n float64 }
	daily := make(map[dayKey]*acc)
	first := make(map[countyKey]Daily)
	var dayOrder []dayKey

	for _, d := range days {
		ck := countyKey{year: d.Date.Year(), state: d.StateName, county: d.CountyName}
		if _, ok := first[ck]; !ok {
			first[ck] = d
		}
		dk := dayKey{county: ck, date: d.Date}
		a, ok := daily[dk]
		if !ok {
			a = &acc{}
			daily[dk] = a
			dayOrder = append(dayOrder, dk)
		}
		a.sum += d.AQI
		a.n++
	}

	stats := make(map[countyKey]*CountyAQI)
	sums := make(map[countyKey]float64)
	for _, dk := range dayOrder {
		a := daily[dk]
		v := a.sum / a.n
		s, ok := stats[dk.county]
		if !ok {
			f := first[dk.county]
			s = &CountyAQI{
				Year:       dk.county.year,
				StateName:  f.StateName,
				CountyName: f.CountyName,
				StateFP:    f.StateFP,
				CountyFP:   f.CountyFP,
				FIPS:       f.StateFP + f.CountyFP,
				MaxAQI:     v,
				MinAQI:     v,
			}
			stats[dk.county] = s
		}
		s.MaxAQI = math.Max(s.MaxAQI, v)
		s.MinAQI = math.Min(s.MinAQI, v)
		s.Days++
		sums[dk.county] += v
	}

	out := make([]CountyAQI, 0, len(stats))
	for k, s := range stats {
		if s.FIPS == "00000" {
			continue
		}
		s.AvgAQI = sums[k] / float64(s.Days)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.StateName != b.StateName {
			return a.StateName < b.StateName
		}
		return a.CountyName < b.CountyName
	})
	return out
}

// YearSummary condenses one year of county statistics.
type YearSummary struct {
	Year     int
	Counties int
	AvgAQI   float64 // mean of county averages
	MaxAQI   float64
	MinAQI   float64
	Days     int
}

// Summarize returns one summary per year, in year order. Averages are
// rounded to two decimals.
func Summarize(rows []CountyAQI) []YearSummary {
	byYear := make(map[int]*YearSummary)
	sums := make(map[int]float64)
	for _, r := range rows {
		s, ok := byYear[r.Year]
		if !ok {
			s = &YearSummary{Year: r.Year, MaxAQI: r.MaxAQI, MinAQI: r.MinAQI}
			byYear[r.Year] = s
		}
		s.Counties++
		s.Days += r.Days
		s.MaxAQI = math.Max(s.MaxAQI, r.MaxAQI)
		s.MinAQI = math.Min(s.MinAQI, r.MinAQI)
		sums[r.Year] += r.AvgAQI
	}

	out := make([]YearSummary, 0, len(byYear))
	for y, s := range byYear {
		s.AvgAQI = math.Round(sums[y]/float64(s.Counties)*100) / 100
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// WriteCSV writes the aggregated table with a header line.
func WriteCSV(w io.Writer, rows []CountyAQI) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		if err := enc.EncodeHeader(CountyAQI{}); err != nil {
			return eris.Wrap(err, "aqi: csv header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "aqi: csv encode")
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "aqi: csv flush")
}
