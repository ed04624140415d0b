package fiscal

// Lookup recorre m siguiendo path y devuelve el valor final.
// Devuelve def si falta algún segmento, si el valor final es nil o si un
// valor intermedio no es un mapa.
func Lookup(m map[string]any, def any, path ...string) any {
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok || node == nil {
			return def
		}
		cur, ok = node[key]
		if !ok {
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}

// LookupMap devuelve el sub-mapa en path o nil si no existe o no es un mapa.
func LookupMap(m map[string]any, path ...string) map[string]any {
	node, _ := Lookup(m, nil, path...).(map[string]any)
	return node
}

// LookupValue devuelve el escalar en path como Value (ausente si no existe).
// Un mapa o una lista donde se espera un escalar se trata como ausente.
func LookupValue(m map[string]any, path ...string) Value {
	switch x := Lookup(m, nil, path...).(type) {
	case map[string]any, []any:
		return Absent()
	default:
		return Of(x)
	}
}
