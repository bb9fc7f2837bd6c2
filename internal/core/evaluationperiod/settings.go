package evaluationperiod

var phaseDefaults = map[Phase]Settings{
	PhaseEvaluationSetup: {CriteriaEnabled: true},
	PhasePerformance:     {},
	PhaseSelfEvaluation:  {SelfEvaluationEnabled: true},
	PhasePeerEvaluation:  {},
	PhaseClosure:         {FinalEvaluationEnabled: true},
}

// DefaultSettings は段階ごとの既定値を返します。
func DefaultSettings(phase Phase) (Settings, error) {
	defaults, ok := phaseDefaults[phase]
	if !ok {
		return Settings{}, ErrInvalidPhase
	}
	return defaults, nil
}

// ResolveSettings は段階遷移後の設定値を求めます。
// manual に含まれる項目は current の値を維持し、それ以外は段階の既定値で上書きします。
func ResolveSettings(phase Phase, manual []SettingField, current Settings) (Settings, error) {
	defaults, err := DefaultSettings(phase)
	if err != nil {
		return Settings{}, err
	}

	pinned := make(map[SettingField]struct{}, len(manual))
	for _, f := range manual {
		pinned[f] = struct{}{}
	}

	var resolved Settings
	for _, field := range SettingFields() {
		if _, ok := pinned[field]; ok {
			resolved.set(field, current.Get(field))
			continue
		}
		resolved.set(field, defaults.Get(field))
	}
	return resolved, nil
}
