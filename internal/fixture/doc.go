// Package fixture loads seed data for a store from YAML.
//
// A fixture file lists records under entity or entity set names:
//
//	records:
//	  Orders:
//	    - {ID: 1, OrderStatus: New, Total: 10.50, Active: true}
//	  Contract:
//	    - {ID: 4, Number: C-1, Signed: true}
//
// Sections are applied in file order and rows in list order, so stored
// sequence numbers follow the file. Every row is coerced to its entity's
// field types and validated against the entity's JSON schema before any
// write; Apply writes all rows in one transaction.
package fixture
