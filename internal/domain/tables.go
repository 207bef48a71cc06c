package domain

var Tables = []interface{}{
	// Stock
	&Product{},
	// System
	&User{},
}
