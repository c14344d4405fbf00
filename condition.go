package shadertpl

// ConditionEvaluator evaluates a boolean condition expression against the enabled features.
type ConditionEvaluator interface {
	Evaluate(expr string, features FeatureSet) (bool, error)
}

// EvaluatorFunc adapts a plain function to a ConditionEvaluator.
type EvaluatorFunc func(expr string, features FeatureSet) (bool, error)

func (f EvaluatorFunc) Evaluate(expr string, features FeatureSet) (bool, error) {
	return f(expr, features)
}

// KeywordLookup answers /// IF_KEYWORD conditions. *Config implements it.
type KeywordLookup interface {
	KeywordSet(name string) bool
}
