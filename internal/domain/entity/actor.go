package entity

// Actor usuario que ejecuta una operación. Lo provee el proveedor de identidad (JWT);
// el núcleo lo trata como un identificador opaco.
type Actor struct {
	UserID   string
	UserName string
}
