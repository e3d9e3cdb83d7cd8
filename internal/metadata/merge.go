package metadata

// Merge returns a new document holding every key of base, with override applied
// on top. Nested documents present on both sides are merged recursively; any
// other override value (scalar, list, or a document replacing a scalar)
// replaces the base value wholesale. Neither input is modified.
func Merge(base, override *Document) *Document {
	out := base.Clone()
	if override == nil {
		return out
	}
	mergeInto(out, override)
	return out
}

func mergeInto(dst, src *Document) {
	for _, key := range src.keys {
		incoming := src.values[key]
		if current, ok := dst.values[key]; ok {
			curDoc, curIsDoc := current.Document()
			inDoc, inIsDoc := incoming.Document()
			if curIsDoc && inIsDoc {
				mergeInto(curDoc, inDoc)
				continue
			}
		}
		dst.Set(key, incoming.Clone())
	}
}
