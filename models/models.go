package models

// All lists every table, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&CatalogItem{},
		&FencingService{},
		&ServiceMaterial{},
		&FencingAddon{},
		&FenceQuote{},
		&Invoice{},
		&InvoiceSequence{},
		&Payment{},
		&TeamMember{},
		&Job{},
		&JobPhoto{},
		&Expense{},
		&Notification{},
		&AuditLog{},
		&TaxConfig{},
		&IdempotencyKey{},
	}
}
