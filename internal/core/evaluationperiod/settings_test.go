package evaluationperiod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSettings_PhaseDefaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		phase Phase
		want  Settings
	}{
		{PhaseEvaluationSetup, Settings{CriteriaEnabled: true}},
		{PhasePerformance, Settings{}},
		{PhaseSelfEvaluation, Settings{SelfEvaluationEnabled: true}},
		{PhasePeerEvaluation, Settings{}},
		{PhaseClosure, Settings{FinalEvaluationEnabled: true}},
	}

	all := Settings{CriteriaEnabled: true, SelfEvaluationEnabled: true, FinalEvaluationEnabled: true}
	for _, tc := range cases {
		got, err := ResolveSettings(tc.phase, nil, all)
		require.NoError(t, err, tc.phase)
		assert.Equal(t, tc.want, got, tc.phase)
	}
}

func TestResolveSettings_TotalOverPhasesAndManualSubsets(t *testing.T) {
	t.Parallel()

	fields := SettingFields()
	current := Settings{CriteriaEnabled: false, SelfEvaluationEnabled: true, FinalEvaluationEnabled: false}

	for _, phase := range Phases() {
		defaults, err := DefaultSettings(phase)
		require.NoError(t, err)

		for mask := 0; mask < 1<<len(fields); mask++ {
			var manual []SettingField
			for i, f := range fields {
				if mask&(1<<i) != 0 {
					manual = append(manual, f)
				}
			}

			got, err := ResolveSettings(phase, manual, current)
			require.NoError(t, err)

			for i, f := range fields {
				if mask&(1<<i) != 0 {
					assert.Equal(t, current.Get(f), got.Get(f), "pinned %s in %s", f, phase)
				} else {
					assert.Equal(t, defaults.Get(f), got.Get(f), "default %s in %s", f, phase)
				}
			}
		}
	}
}

func TestResolveSettings_UnknownPhase(t *testing.T) {
	t.Parallel()

	_, err := ResolveSettings(Phase("grading"), nil, Settings{})
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = ResolveSettings(PhaseNone, nil, Settings{})
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func TestParseSettingField(t *testing.T) {
	t.Parallel()

	cases := map[string]SettingField{
		"criteria":                     FieldCriteria,
		" Self-Evaluation ":            FieldSelfEvaluation,
		"final":                        FieldFinalEvaluation,
		"selfEvaluationSettingEnabled": FieldSelfEvaluation,
	}
	for raw, want := range cases {
		got, err := ParseSettingField(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSettingField("peer")
	assert.ErrorIs(t, err, ErrInvalidSetting)
}
