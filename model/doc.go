// Package model defines the value types shared by every layer of the engine:
// entity and transaction ids, fee amounts, ledger ids, response codes and the
// structured error taxonomy.
//
// Types here carry no wire encoding; see package wire for that.
package model
