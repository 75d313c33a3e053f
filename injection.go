package depends

import (
	"reflect"

	"github.com/garagelab/depends/internal/reflection"
)

// selectInjectionPoint picks the constructor used to build t: the only
// constructor if there is exactly one, otherwise the only one marked as
// injector. Anything else is ambiguous; no signature heuristics apply.
func selectInjectionPoint(catalog TypeCatalog, analyzer *reflection.Analyzer, t reflect.Type) (*reflection.Constructor, error) {
	ctors := catalog.Constructors(t)

	var selected *ConstructorInfo
	if len(ctors) == 1 {
		selected = &ctors[0]
	} else {
		marked := 0
		for i := range ctors {
			if ctors[i].Injector {
				marked++
				selected = &ctors[i]
			}
		}

		if marked != 1 {
			return nil, InjectionPointError{Type: t, Candidates: len(ctors), Marked: marked}
		}
	}

	ctor, err := analyzer.Analyze(selected.Func, t)
	if err != nil {
		return nil, ConstructionError{ServiceType: t, Cause: err}
	}

	return ctor, nil
}
