// Package dto holds the JSON shapes returned by the streaming bridge and
// their conversion to model.Item.
package dto
