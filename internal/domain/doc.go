// Package domain defines the card-account entities, the payment saga record
// and the error kinds shared by every layer of the service.
package domain
