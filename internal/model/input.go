package model

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadObservations reads the calibration input CSV produced by the external
// data-preparation step. The file carries one row per income group with a
// header naming the columns: group, T, tbeta, tw, sf, sm, gamma, and the
// observed time allocations Lf_<index> and Lm_<index> for every index
// including leisure.
func LoadObservations(path string) (map[IncomeGroup]GroupObservations, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calibration input: %w", err)
	}
	defer file.Close()

	observations, err := ReadObservations(file)
	if err != nil {
		return nil, fmt.Errorf("read calibration input %s: %w", path, err)
	}
	return observations, nil
}

// ReadObservations parses calibration input CSV records from a reader.
func ReadObservations(r io.Reader) (map[IncomeGroup]GroupObservations, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	column := make(map[string]int, len(header))
	for i, name := range header {
		column[name] = i
	}

	required := []string{"group", "T", "tbeta", "tw", "sf", "sm", "gamma"}
	for _, ix := range AllIndices {
		required = append(required, "Lf_"+string(ix), "Lm_"+string(ix))
	}
	for _, name := range required {
		if _, ok := column[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidObservations, name)
		}
	}

	field := func(record []string, name string) (float64, error) {
		raw := record[column[name]]
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: column %q value %q is not numeric", ErrInvalidObservations, name, raw)
		}
		return v, nil
	}

	observations := make(map[IncomeGroup]GroupObservations, len(IncomeGroups))
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d",
				ErrInvalidObservations, line, len(record), len(header))
		}

		obs := GroupObservations{
			Group:       IncomeGroup(record[column["group"]]),
			HoursFemale: make(map[Index]float64, len(AllIndices)),
			HoursMale:   make(map[Index]float64, len(AllIndices)),
		}
		scalars := map[string]*float64{
			"T":     &obs.LifeExpectancy,
			"tbeta": &obs.RelativeSchoolingCost,
			"tw":    &obs.WageRatio,
			"sf":    &obs.SchoolingFemale,
			"sm":    &obs.SchoolingMale,
			"gamma": &obs.SubsistenceShare,
		}
		for name, dst := range scalars {
			if *dst, err = field(record, name); err != nil {
				return nil, err
			}
		}
		for _, ix := range AllIndices {
			if obs.HoursFemale[ix], err = field(record, "Lf_"+string(ix)); err != nil {
				return nil, err
			}
			if obs.HoursMale[ix], err = field(record, "Lm_"+string(ix)); err != nil {
				return nil, err
			}
		}

		if err := obs.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := observations[obs.Group]; dup {
			return nil, fmt.Errorf("%w: duplicate income group %q", ErrInvalidObservations, obs.Group)
		}
		observations[obs.Group] = obs
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalidObservations)
	}
	return observations, nil
}

// LoadFixedParameters reads an externally supplied fixed-parameters record
// from a JSON file. Keys match the baseline constant names (eta, eta_l,
// epsilon, sigma, nu, zeta, rho, Lf, Lm, Z_Sr); absent keys keep the
// baseline values and unknown keys are an error.
func LoadFixedParameters(path string) (FixedParameters, error) {
	file, err := os.Open(path)
	if err != nil {
		return FixedParameters{}, fmt.Errorf("open fixed parameters: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	var fixed FixedParameters
	if err := decoder.Decode(&fixed); err != nil {
		return FixedParameters{}, fmt.Errorf("parse fixed parameters %s: %w", path, err)
	}
	if err := fixed.Validate(); err != nil {
		return FixedParameters{}, fmt.Errorf("fixed parameters %s: %w", path, err)
	}
	return fixed, nil
}
