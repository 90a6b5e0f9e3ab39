package domain

var Tables = []interface{}{
	// System
	&Account{},
	// Document store
	&StoreDocument{},
}
