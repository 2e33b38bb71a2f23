package cache

// IdentifierHeader is the header carrying the caller-chosen resource
// identifier. Lookup is case-sensitive.
const IdentifierHeader = "x-resource-identifier"

// Key derives the cache key for a resource.
//
// Format: identifier + baseAddress + uri
//
// Example:
//
//	order-42https://api.example.com/orders
func Key(identifier, baseAddress, uri string) string {
	return identifier + baseAddress + uri
}

// IdentifierFromHeaders extracts the resource identifier from a header set.
//
// A nil header set yields an empty identifier without validation. A non-nil
// set must contain IdentifierHeader with a non-empty value.
func IdentifierFromHeaders(headers map[string]string) (string, error) {
	if headers == nil {
		return "", nil
	}

	identifier, ok := headers[IdentifierHeader]
	if !ok {
		return "", &MissingHeaderError{
			Header: IdentifierHeader,
			Reason: "in order to cache a PUT or POST, a unique identifier header '" +
				IdentifierHeader + "' must be provided",
		}
	}

	if identifier == "" {
		return "", &MissingHeaderError{
			Header: IdentifierHeader,
			Reason: "the header '" + IdentifierHeader +
				"' was provided but its value is empty, it must be populated for caching to work",
		}
	}

	return identifier, nil
}

// keyFor validates the headers and derives the key in one step.
func keyFor(baseAddress, uri string, headers map[string]string) (string, error) {
	identifier, err := IdentifierFromHeaders(headers)
	if err != nil {
		return "", err
	}
	return Key(identifier, baseAddress, uri), nil
}
