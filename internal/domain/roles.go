package domain

// ActorRole identifies who is invoking an operation
type ActorRole string

const (
	RoleClient   ActorRole = "client"
	RoleProvider ActorRole = "provider"
	RoleSystem   ActorRole = "system"
	RoleOperator ActorRole = "operator"
)

// Operation enumerates all state machine operations for permission checks
type Operation string

const (
	OpCreate                  Operation = "create"
	OpConfirm                 Operation = "confirm"
	OpReject                  Operation = "reject"
	OpCancel                  Operation = "cancel"
	OpRequestReschedule       Operation = "request_reschedule"
	OpRespondReschedule       Operation = "respond_reschedule"
	OpMarkArrived             Operation = "mark_arrived"
	OpStartExecution          Operation = "start_execution"
	OpUpdateOperationalStatus Operation = "update_operational_status"
	OpGenerateCompletionPin   Operation = "generate_completion_pin"
	OpConfirmCompletion       Operation = "confirm_completion"
	OpContestCompletion       Operation = "contest_completion"
	OpEscalateCompletion      Operation = "escalate_completion"
	OpExpirePending           Operation = "expire_pending"
	OpResolveNoShowQueue      Operation = "resolve_noshow_queue"
)

// rolePermissions статическая таблица (operation, role) -> allowed
// Проверяется до какой-либо логики переходов (см. checkRole в сервисах)
var rolePermissions = map[Operation]map[ActorRole]bool{
	OpCreate:                  {RoleClient: true},
	OpConfirm:                 {RoleProvider: true},
	OpReject:                  {RoleProvider: true},
	OpCancel:                  {RoleClient: true, RoleProvider: true},
	OpRequestReschedule:       {RoleClient: true, RoleProvider: true},
	OpRespondReschedule:       {RoleClient: true, RoleProvider: true},
	OpMarkArrived:             {RoleProvider: true},
	OpStartExecution:          {RoleProvider: true},
	OpUpdateOperationalStatus: {RoleProvider: true},
	OpGenerateCompletionPin:   {RoleProvider: true},
	OpConfirmCompletion:       {RoleClient: true},
	OpContestCompletion:       {RoleClient: true},
	OpEscalateCompletion:      {RoleOperator: true},
	OpExpirePending:           {RoleSystem: true},
	OpResolveNoShowQueue:      {RoleOperator: true, RoleSystem: true},
}

// IsOperationAllowed returns true if the role may invoke the operation
func IsOperationAllowed(op Operation, role ActorRole) bool {
	allowed, ok := rolePermissions[op]
	if !ok {
		return false
	}
	return allowed[role]
}

// ValidActorRole returns true for roles accepted at the API boundary
func ValidActorRole(role ActorRole) bool {
	switch role {
	case RoleClient, RoleProvider, RoleSystem, RoleOperator:
		return true
	}
	return false
}

// CounterpartRole returns the opposite negotiation side
func CounterpartRole(role ActorRole) ActorRole {
	if role == RoleClient {
		return RoleProvider
	}
	return RoleClient
}
