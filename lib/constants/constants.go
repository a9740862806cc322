package constants

const (
	SSM_PARAMETER_PATH     = "/ticketing"
	ALLOWED_ORIGINS        = "/ticketing/ALLOWED_ORIGINS"
	DATABASE_RDS_PROXY_URL = "/ticketing/DATABASE_RDS_PROXY_URL"
	DATABASE_RDS_ENDPOINT  = "/ticketing/DATABASE_RDS_ENDPOINT"
	DATABASE_PORT          = "/ticketing/DATABASE_PORT"
	DATABASE_NAME          = "/ticketing/DATABASE_NAME"
	DATABASE_USERNAME      = "/ticketing/DATABASE_USERNAME"
	DATABASE_PASSWORD      = "/ticketing/DATABASE_PASSWORD"
	SSL_MODE               = "/ticketing/SSL_MODE"
	COGNITO_USER_POOL_ID   = "/ticketing/COGNITO_USER_POOL_ID"
	DRIVER_NAME            = "postgres"
	AWS_REGION             = "us-east-2"
	LOCALSTACK_ENDPOINT    = "http://docker.for.mac.host.internal:4566"
)

// Permission names checked server-side by the ticket endpoints.
const (
	PermissionTicketCreate = "ticket-create"
	PermissionTicketRead   = "ticket-read"
	PermissionTicketUpdate = "ticket-update"
	PermissionTicketDelete = "ticket-delete"
)
