// Package optimizer holds the parameter update rules used by the linear
// classifier: Adagrad and gradient clipping by global norm.
package optimizer
