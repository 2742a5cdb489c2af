package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

const (
	sightingColumns = 6
	climateColumns  = 10
	fieldSeparator  = ","
)

// ParseResult holds the rows that parsed and how many were dropped.
type ParseResult[T any] struct {
	Records []T
	Dropped int
}

// ParseOptions configures row-level reporting. A nil Logger disables it.
type ParseOptions struct {
	Logger *slog.Logger
	Source string
}

// ParseSightings reads the sightings file format. The first line is a header.
// Rows with the wrong column count or an invalid field are dropped and counted.
// The error is non-nil only when reading fails.
func ParseSightings(r io.Reader, opts ParseOptions) (ParseResult[HistoricalSighting], error) {
	return parseRows(r, opts, sightingColumns, parseSightingRow)
}

// ParseClimateProjections reads the climate projections file format. The first
// line is a header. Rows with the wrong column count or an invalid field are
// dropped and counted. The error is non-nil only when reading fails.
func ParseClimateProjections(r io.Reader, opts ParseOptions) (ParseResult[ClimateProjection], error) {
	return parseRows(r, opts, climateColumns, parseClimateRow)
}

func parseRows[T any](r io.Reader, opts ParseOptions, columns int, parse func([]string) (T, error)) (ParseResult[T], error) {
	result := ParseResult[T]{Records: make([]T, 0)}
	br := bufio.NewReaderSize(r, 64*1024)

	lineNum := 0
	for {
		line, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil && !errors.Is(err, errLineTooLong) {
			return result, fmt.Errorf("read %s: %w", sourceName(opts), err)
		}
		if lineNum == 1 {
			continue // header
		}
		if err == nil && strings.TrimSpace(line) == "" {
			continue
		}

		var rec T
		if err == nil {
			fields := splitRow(line)
			if len(fields) != columns {
				err = fmt.Errorf("expected %d columns, got %d", columns, len(fields))
			} else {
				rec, err = parse(fields)
			}
		}
		if err != nil {
			result.Dropped++
			if opts.Logger != nil {
				opts.Logger.Debug("dropping malformed row",
					"source", opts.Source,
					"line", lineNum,
					"error", err,
				)
			}
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

const maxLineBytes = 1 << 20

var errLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineBytes)

// readLine returns the next line without its line ending. A line longer than
// maxLineBytes is consumed in full and reported as errLineTooLong so the
// following rows still parse. io.EOF is returned only when no line is left.
func readLine(br *bufio.Reader) (string, error) {
	var (
		buf     []byte
		started bool
		tooLong bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				break
			}
			return "", err
		}
		started = true
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errLineTooLong
	}
	return string(buf), nil
}

func sourceName(opts ParseOptions) string {
	if opts.Source == "" {
		return "input"
	}
	return opts.Source
}

// splitRow splits on every separator and trims each field. Source files do
// not quote fields.
func splitRow(line string) []string {
	fields := strings.Split(line, fieldSeparator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseSightingRow(f []string) (HistoricalSighting, error) {
	var s HistoricalSighting
	var err error

	s.Species = f[0]
	if s.Year, err = parseInt("year", f[1]); err != nil {
		return s, err
	}
	if s.Count, err = parseInt("count", f[2]); err != nil {
		return s, err
	}
	if s.Count < 0 {
		return s, fmt.Errorf("count: negative value %d", s.Count)
	}
	if s.Latitude, err = parseFloat("latitude", f[3]); err != nil {
		return s, err
	}
	if s.Longitude, err = parseFloat("longitude", f[4]); err != nil {
		return s, err
	}
	if s.Timeline, err = parseTimeline(f[5]); err != nil {
		return s, err
	}
	return s, nil
}

func parseClimateRow(f []string) (ClimateProjection, error) {
	var c ClimateProjection
	var err error

	if c.Year, err = parseInt("year", f[0]); err != nil {
		return c, err
	}
	c.Species = f[1]
	floats := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"latitude", f[2], &c.Latitude},
		{"longitude", f[3], &c.Longitude},
		{"temperature_C", f[4], &c.Temperature},
		{"precipitation_mm", f[5], &c.Precipitation},
		{"ndvi", f[6], &c.NDVI},
		{"fire_size_km2", f[8], &c.FireSize},
		{"fire_probability", f[9], &c.FireProbability},
	}
	for _, fl := range floats {
		if *fl.dst, err = parseFloat(fl.name, fl.raw); err != nil {
			return c, err
		}
	}
	if c.FireOccurred, err = ParseBool(f[7]); err != nil {
		return c, fmt.Errorf("fire_occurred: %w", err)
	}
	return c, nil
}

var errInvalidBool = errors.New("invalid boolean")

// ParseBool accepts true/1/yes and false/0/no, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errInvalidBool, s)
	}
}

func parseTimeline(s string) (Timeline, error) {
	switch {
	case strings.EqualFold(s, string(TimelineHistorical)):
		return TimelineHistorical, nil
	case strings.EqualFold(s, string(TimelineProjected)):
		return TimelineProjected, nil
	default:
		return "", fmt.Errorf("timeline: unknown value %q", s)
	}
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: non-finite value %q", name, s)
	}
	return v, nil
}
