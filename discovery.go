package depends

import "reflect"

// scanDefaults collects the default-implementation markers of the given
// classes in order. Each pair is validated the way Register validates it,
// and an interface claimed by two classes fails the whole scan.
func scanDefaults(classes []*classInfo) ([]DefaultImplementation, error) {
	var found []DefaultImplementation
	claimed := make(map[reflect.Type]int)

	for _, ci := range classes {
		// Interfaces cannot be instantiated, so their markers are ignored.
		if ci.typ.Kind() == reflect.Interface {
			continue
		}

		for _, d := range ci.defaults {
			if err := validateRegistration(d.iface, ci.typ); err != nil {
				return nil, err
			}

			if i, ok := claimed[d.iface]; ok {
				return nil, DuplicateDefaultError{
					Interface:       d.iface,
					Implementations: []reflect.Type{found[i].Implementation, ci.typ},
				}
			}

			claimed[d.iface] = len(found)
			found = append(found, DefaultImplementation{
				Interface:      d.iface,
				Implementation: ci.typ,
				Lifetime:       d.lifetime,
			})
		}
	}

	return found, nil
}
