package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// EvaluationAdminServiceName は評価管理サービスの完全修飾名です。
const EvaluationAdminServiceName = "evaluation.v1.EvaluationAdminService"

// EvaluationAdminServer は評価管理サービスのサーバー側インターフェースです。
// 要求と応答はいずれも google.protobuf.Struct で表現します。
type EvaluationAdminServer interface {
	CreatePeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPeriods(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartPeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompletePeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangePhase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPermission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MapEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetStepApprovalStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitRevisionResponse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStepApproval(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStepApprovals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpsertSelfEvaluation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitSelfEvaluations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(EvaluationAdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + EvaluationAdminServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EvaluationAdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EvaluationAdminServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// EvaluationAdminServiceDesc は評価管理サービスの grpc.ServiceDesc です。
var EvaluationAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationAdminServiceName,
	HandlerType: (*EvaluationAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("CreatePeriod", EvaluationAdminServer.CreatePeriod),
		methodDesc("GetPeriod", EvaluationAdminServer.GetPeriod),
		methodDesc("ListPeriods", EvaluationAdminServer.ListPeriods),
		methodDesc("StartPeriod", EvaluationAdminServer.StartPeriod),
		methodDesc("CompletePeriod", EvaluationAdminServer.CompletePeriod),
		methodDesc("ChangePhase", EvaluationAdminServer.ChangePhase),
		methodDesc("SetPermission", EvaluationAdminServer.SetPermission),
		methodDesc("MapEmployee", EvaluationAdminServer.MapEmployee),
		methodDesc("SetStepApprovalStatus", EvaluationAdminServer.SetStepApprovalStatus),
		methodDesc("SubmitRevisionResponse", EvaluationAdminServer.SubmitRevisionResponse),
		methodDesc("GetStepApproval", EvaluationAdminServer.GetStepApproval),
		methodDesc("ListStepApprovals", EvaluationAdminServer.ListStepApprovals),
		methodDesc("UpsertSelfEvaluation", EvaluationAdminServer.UpsertSelfEvaluation),
		methodDesc("SubmitSelfEvaluations", EvaluationAdminServer.SubmitSelfEvaluations),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterEvaluationAdminServer は srv を s に登録します。
func RegisterEvaluationAdminServer(s grpc.ServiceRegistrar, srv EvaluationAdminServer) {
	s.RegisterService(&EvaluationAdminServiceDesc, srv)
}

// EvaluationAdminClient は評価管理サービスの汎用クライアントです。
type EvaluationAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluationAdminClient は EvaluationAdminClient を生成します。
func NewEvaluationAdminClient(cc grpc.ClientConnInterface) *EvaluationAdminClient {
	return &EvaluationAdminClient{cc: cc}
}

// Call は method を呼び出します。method は "StartPeriod" のようなメソッド名です。
func (c *EvaluationAdminClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+EvaluationAdminServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
