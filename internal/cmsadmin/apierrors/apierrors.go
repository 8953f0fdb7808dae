// Пакет содержит определения ошибок API административной панели.
// Каждая ошибка имеет код, статус HTTP и описание на английском и французском.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	FrErr      string `json:"fr_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

var (
	// 1*** - auth errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials", FrErr: "Email ou mot de passe incorrect"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1002, StatusCode: http.StatusBadRequest, Err: "both email and password are required", FrErr: "L'email et le mot de passe sont obligatoires"}
	ErrLoginRequired            = DefinedError{Code: 1003, StatusCode: http.StatusUnauthorized, Err: "you must log in", FrErr: "Vous devez vous connecter"}
	ErrTokenExpired             = DefinedError{Code: 1004, StatusCode: http.StatusUnauthorized, Err: "token expired", FrErr: "La session a expiré, reconnectez-vous"}

	// 2*** - editor errors
	ErrEditorSessionNotFound = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "editor session not found", FrErr: "Session d'édition introuvable"}
	ErrEditorReadOnly        = DefinedError{Code: 2002, StatusCode: http.StatusForbidden, Err: "editor is read-only", FrErr: "L'éditeur est en lecture seule"}
	ErrUnknownFormat         = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "unknown format %s", FrErr: "Format inconnu %s"}
	ErrEmptyEmbedURL         = DefinedError{Code: 2004, StatusCode: http.StatusBadRequest, Err: "url is empty", FrErr: "L'URL est vide"}
	ErrEmbedModalClosed      = DefinedError{Code: 2005, StatusCode: http.StatusConflict, Err: "no embed request is open", FrErr: "Aucune insertion en cours"}
	ErrInvalidEmbedKind      = DefinedError{Code: 2006, StatusCode: http.StatusBadRequest, Err: "invalid embed kind", FrErr: "Type d'insertion invalide"}
	ErrInvalidInputOp        = DefinedError{Code: 2007, StatusCode: http.StatusBadRequest, Err: "invalid input operation", FrErr: "Opération de saisie invalide"}

	// 3*** - content errors
	ErrContentNotFound      = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Err: "content not found", FrErr: "Contenu introuvable"}
	ErrUploadFileRequired   = DefinedError{Code: 3002, StatusCode: http.StatusBadRequest, Err: "file is required", FrErr: "Le fichier est obligatoire"}
	ErrRemoteAPI            = DefinedError{Code: 3003, StatusCode: http.StatusBadGateway, Err: "remote api error: %s", FrErr: "Erreur de l'API distante : %s"}
	ErrRemoteAPIUnavailable = DefinedError{Code: 3004, StatusCode: http.StatusServiceUnavailable, Err: "remote api is unavailable", FrErr: "L'API distante est indisponible"}
	ErrDraftNotFound        = DefinedError{Code: 3005, StatusCode: http.StatusNotFound, Err: "draft not found", FrErr: "Brouillon introuvable"}

	// 5*** - common errors
	ErrGeneric       = DefinedError{Code: 5000, StatusCode: http.StatusBadRequest, Err: "Something went wrong. Please try again later or contact the support team.", FrErr: "Une erreur est survenue. Réessayez plus tard ou contactez le support"}
	ErrInvalidID     = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "invalid ID", FrErr: "Identifiant invalide"}
	ErrValidation    = DefinedError{Code: 5002, StatusCode: http.StatusBadRequest, Err: "validation failed: %s", FrErr: "Données invalides : %s"}
	ErrEntityToLarge = DefinedError{Code: 5003, StatusCode: http.StatusRequestEntityTooLarge, Err: "request entity too large", FrErr: "Requête trop volumineuse"}
)

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		e.FrErr = fmt.Sprintf(e.FrErr, args...)
	} else {
		e.Err = strings.Replace(e.Err, "%s", "", -1)
		e.FrErr = strings.Replace(e.FrErr, "%s", "", -1)
	}
	return e
}

// AsDefined достает DefinedError из цепочки ошибок
func AsDefined(err error) (DefinedError, bool) {
	var de DefinedError
	if errors.As(err, &de) {
		return de, true
	}
	return DefinedError{}, false
}
