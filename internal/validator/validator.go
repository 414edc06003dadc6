package validator

// Validator checks device codes against configured allow-lists
type Validator struct {
	archs  map[string]struct{}
	models map[string]struct{}
}

// New creates a validator from the given architecture and model lists
func New(archs, models []string) *Validator {
	return &Validator{
		archs:  toSet(archs),
		models: toSet(models),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ValidateArch reports whether code is an allowed architecture
func (v *Validator) ValidateArch(code string) bool {
	_, ok := v.archs[code]
	return ok
}

// ValidateModel reports whether code is an allowed device model
func (v *Validator) ValidateModel(code string) bool {
	_, ok := v.models[code]
	return ok
}
