package model

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observationsCSV renders observation rows in the calibration input layout.
func observationsCSV(rows ...GroupObservations) string {
	header := []string{"group", "T", "tbeta", "tw", "sf", "sm", "gamma"}
	for _, ix := range AllIndices {
		header = append(header, "Lf_"+string(ix), "Lm_"+string(ix))
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, obs := range rows {
		fields := []string{
			string(obs.Group),
			formatField(obs.LifeExpectancy),
			formatField(obs.RelativeSchoolingCost),
			formatField(obs.WageRatio),
			formatField(obs.SchoolingFemale),
			formatField(obs.SchoolingMale),
			formatField(obs.SubsistenceShare),
		}
		for _, ix := range AllIndices {
			fields = append(fields, formatField(obs.HoursFemale[ix]), formatField(obs.HoursMale[ix]))
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func formatField(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func TestReadObservations(t *testing.T) {
	low := testObservations()
	low.Group = GroupLow
	middle := testObservations()

	observations, err := ReadObservations(strings.NewReader(observationsCSV(low, middle)))
	require.NoError(t, err)
	require.Len(t, observations, 2)

	got, ok := observations[GroupMiddle]
	require.True(t, ok)
	assert.Equal(t, middle.LifeExpectancy, got.LifeExpectancy)
	assert.Equal(t, middle.WageRatio, got.WageRatio)
	assert.Equal(t, middle.HoursFemale[IndexAr], got.HoursFemale[IndexAr])
	assert.Equal(t, middle.HoursMale[IndexLeisure], got.HoursMale[IndexLeisure])
}

func TestReadObservationsMissingColumn(t *testing.T) {
	csvData := observationsCSV(testObservations())
	csvData = strings.Replace(csvData, "tbeta", "beta", 1)

	_, err := ReadObservations(strings.NewReader(csvData))
	assert.ErrorIs(t, err, ErrInvalidObservations)
	assert.Contains(t, err.Error(), "tbeta")
}

func TestReadObservationsDuplicateGroup(t *testing.T) {
	_, err := ReadObservations(strings.NewReader(observationsCSV(testObservations(), testObservations())))
	assert.ErrorIs(t, err, ErrInvalidObservations)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestReadObservationsNonNumericField(t *testing.T) {
	csvData := observationsCSV(testObservations())
	csvData = strings.Replace(csvData, "56.9", "n/a", 1)

	_, err := ReadObservations(strings.NewReader(csvData))
	assert.ErrorIs(t, err, ErrInvalidObservations)
}

func TestReadObservationsEmptyFile(t *testing.T) {
	_, err := ReadObservations(strings.NewReader(observationsCSV()))
	assert.ErrorIs(t, err, ErrInvalidObservations)
	assert.Contains(t, err.Error(), "no data rows")
}

func TestReadObservationsInvalidRow(t *testing.T) {
	bad := testObservations()
	bad.WageRatio = -1

	_, err := ReadObservations(strings.NewReader(observationsCSV(bad)))
	assert.ErrorIs(t, err, ErrInvalidObservations)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadObservations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.csv")
	require.NoError(t, os.WriteFile(path, []byte(observationsCSV(testObservations())), 0o644))

	observations, err := LoadObservations(path)
	require.NoError(t, err)
	assert.Len(t, observations, 1)
}

func TestLoadObservationsMissingFile(t *testing.T) {
	_, err := LoadObservations(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFixedParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.json")
	data := `{"eta": 1.8, "rho": 0.05, "Z_Sr": 1.0}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	fixed, err := LoadFixedParameters(path)
	require.NoError(t, err)
	require.NotNil(t, fixed.Eta)
	assert.Equal(t, 1.8, *fixed.Eta)
	require.NotNil(t, fixed.Rho)
	assert.Equal(t, 0.05, *fixed.Rho)
	assert.Nil(t, fixed.Nu)
}

func TestLoadFixedParametersRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theta": 1.0}`), 0o644))

	_, err := LoadFixedParameters(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theta")
}

func TestLoadFixedParametersRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nu": 1.2}`), 0o644))

	_, err := LoadFixedParameters(path)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestLoadFixedParametersMissingFile(t *testing.T) {
	_, err := LoadFixedParameters(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
