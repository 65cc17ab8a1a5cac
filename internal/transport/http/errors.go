package http

import (
	"net/http"

	apierrors "linka/internal/errors"
	"linka/internal/services"
)

// ServiceErrorMappings maps the service sentinels to problem responses
func ServiceErrorMappings() []apierrors.Mapping {
	return []apierrors.Mapping{
		{Err: services.ErrDatasetNotFound, Status: http.StatusNotFound, Type: apierrors.TypeDatasetNotFound, Title: "Dataset Not Found"},
		{Err: services.ErrDashboardNotFound, Status: http.StatusNotFound, Type: apierrors.TypeDashboardNotFound, Title: "Dashboard Not Found"},
		{Err: services.ErrInvalidColumn, Status: http.StatusBadRequest, Type: apierrors.TypeInvalidColumn, Title: "Invalid Column"},
		{Err: services.ErrUnsupportedFormat, Status: http.StatusUnsupportedMediaType, Type: apierrors.TypeUnsupportedFormat, Title: "Unsupported Format"},
		{Err: services.ErrFileTooLarge, Status: http.StatusRequestEntityTooLarge, Type: apierrors.TypePayloadTooLarge, Title: "Payload Too Large"},
		{Err: services.ErrInvalidUpload, Status: http.StatusUnprocessableEntity, Type: apierrors.TypeInvalidUpload, Title: "Invalid Upload"},
		{Err: services.ErrInvalidDashboard, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Invalid Dashboard"},
		{Err: services.ErrInvalidInput, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Invalid Request"},
	}
}
