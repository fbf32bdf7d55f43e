package patient

import "errors"

var ErrUnrecognizedListShape = errors.New("patient list is neither an array nor a {patients: [...]} object")
