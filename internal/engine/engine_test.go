package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/solana"
	"solana-tx-engine/internal/solana/stub"
)

func testEngine() *Engine {
	return New(Options{
		ResendInterval:        5 * time.Millisecond,
		StatusPollInterval:    5 * time.Millisecond,
		RecordInitialInterval: time.Millisecond,
		RecordMaxInterval:     5 * time.Millisecond,
	})
}

func testEnvelope(sig string) *domain.TransactionEnvelope {
	return &domain.TransactionEnvelope{Raw: []byte{1, 2, 3}, Signature: sig}
}

func confirmedRecord(sig string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      42,
		Signature: sig,
		Meta:      &solana.TransactionMeta{Fee: 5000},
	}
}

var lease = domain.BlockhashLease{Blockhash: "hash", LastValidBlockHeight: 1000}

func TestSubmitAndConfirm_ConfirmedByPoll(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.SetStatus("sig1", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
	gw.AddRecord(confirmedRecord("sig1"))

	out, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig1"), lease, gw, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, out.Status)
	assert.Equal(t, "sig1", out.Signature)
	require.NotNil(t, out.Record)
	assert.Equal(t, int64(42), out.Record.Slot)
	assert.Equal(t, int32(1), gw.Sends.Load())
	assert.Equal(t, int32(1), gw.ConfirmCalls.Load())
}

func TestSubmitAndConfirm_ConfirmedBySignal(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.AddRecord(confirmedRecord("sig2"))

	var gotExpiry uint64
	gw.ConfirmFunc = func(ctx context.Context, signature string, effectiveExpiry uint64) error {
		gotExpiry = effectiveExpiry
		return nil
	}

	out, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig2"), lease, gw, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, out.Status)
	assert.Equal(t, uint64(850), gotExpiry, "effective expiry is last valid height minus 150")
}

func TestSubmitAndConfirm_Expired(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.ConfirmFunc = func(ctx context.Context, signature string, effectiveExpiry uint64) error {
		return fmt.Errorf("%w: height 900 > 850", solana.ErrBlockHeightExceeded)
	}

	out, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig3"), lease, gw, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusExpired, out.Status)
	assert.Nil(t, out.Record)
	assert.Equal(t, int32(0), gw.RecordFetch.Load(), "no record fetch after expiry")
}

func TestSubmitAndConfirm_SendRejected(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.RejectSend = true

	_, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig4"), lease, gw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendRejected)
	assert.ErrorIs(t, err, stub.ErrSendRejected)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), gw.Resends.Load(), "no resend after rejection")
	assert.Equal(t, int32(0), gw.ConfirmCalls.Load())
}

func TestSubmitAndConfirm_ConfirmFailure(t *testing.T) {
	gw := stub.NewGateway("primary")
	boom := errors.New("websocket protocol error")
	gw.ConfirmFunc = func(ctx context.Context, signature string, effectiveExpiry uint64) error {
		return boom
	}

	_, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig5"), lease, gw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitAndConfirm_FastGatewaySends(t *testing.T) {
	primary := stub.NewGateway("primary")
	fast := stub.NewGateway("fast")
	primary.AddRecord(confirmedRecord("sig6"))
	fast.SetStatus("sig6", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentFinalized})

	out, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig6"), lease, primary, fast)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, out.Status)

	assert.Equal(t, int32(1), fast.Sends.Load())
	assert.Equal(t, int32(0), primary.Sends.Load())
	assert.Equal(t, int32(1), fast.ConfirmCalls.Load())
	assert.Equal(t, int32(0), primary.ConfirmCalls.Load())
	assert.Equal(t, int32(0), fast.RecordFetch.Load(), "record is read from primary")
	assert.Equal(t, int32(1), primary.RecordFetch.Load())
}

func TestSubmitAndConfirm_ResendsUntilSettled(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.AddRecord(confirmedRecord("sig7"))
	gw.ConfirmFunc = func(ctx context.Context, signature string, effectiveExpiry uint64) error {
		select {
		case <-time.After(60 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig7"), lease, gw, nil)
	require.NoError(t, err)

	resends := gw.Resends.Load()
	assert.GreaterOrEqual(t, resends, int32(2))

	// The resend loop is stopped once SubmitAndConfirm returns.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, resends, gw.Resends.Load())
}

func TestSubmitAndConfirm_RecordRetry(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.SetStatus("sig8", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
	gw.AddRecord(confirmedRecord("sig8"))
	gw.RecordMisses = 2

	out, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig8"), lease, gw, nil)
	require.NoError(t, err)
	assert.NotNil(t, out.Record)
	assert.Equal(t, int32(3), gw.RecordFetch.Load())
}

func TestSubmitAndConfirm_RecordNotFound(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.SetStatus("sig9", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})

	_, err := testEngine().SubmitAndConfirm(context.Background(), testEnvelope("sig9"), lease, gw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Equal(t, int32(1+DefaultRecordRetries), gw.RecordFetch.Load(), "initial attempt plus retries")
}

func TestSubmitAndConfirm_ParentCancelled(t *testing.T) {
	gw := stub.NewGateway("primary")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := testEngine().SubmitAndConfirm(ctx, testEnvelope("sig10"), lease, gw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_SimulationFailure(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.Simulation = &solana.SimulationResult{
		Err:  map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6001}}},
		Logs: []string{"Program log: slippage tolerance exceeded"},
	}

	_, err := testEngine().Execute(context.Background(), testEnvelope("sig11"), gw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSimulationFailed)

	var simErr *SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Len(t, simErr.Logs, 1)
	assert.Equal(t, int32(0), gw.Sends.Load(), "nothing is sent after a failed simulation")
}

func TestExecute_FailedOnChain(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.SetStatus("sig12", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
	rec := confirmedRecord("sig12")
	rec.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}}
	gw.AddRecord(rec)

	out, err := testEngine().Execute(context.Background(), testEnvelope("sig12"), gw, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "InvalidAccountData")
	assert.False(t, out.Landed())
}

func TestExecute_Landed(t *testing.T) {
	gw := stub.NewGateway("primary")
	gw.SetStatus("sig13", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
	gw.AddRecord(confirmedRecord("sig13"))

	out, err := testEngine().Execute(context.Background(), testEnvelope("sig13"), gw, nil)
	require.NoError(t, err)
	assert.True(t, out.Landed())
}

func TestExecuteBatch(t *testing.T) {
	gw := stub.NewGateway("primary")
	for _, sig := range []string{"b1", "b2", "b3"} {
		gw.SetStatus(sig, &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
		gw.AddRecord(confirmedRecord(sig))
	}

	envs := []*domain.TransactionEnvelope{testEnvelope("b1"), testEnvelope("b2"), testEnvelope("b3")}
	outcomes, err := testEngine().ExecuteBatch(context.Background(), envs, gw, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for i, out := range outcomes {
		assert.Equal(t, envs[i].Signature, out.Signature)
		assert.Equal(t, StatusConfirmed, out.Status)
	}
}

func TestSimulationError_Message(t *testing.T) {
	err := &SimulationError{Err: map[string]interface{}{"Custom": 1}}
	assert.Equal(t, `transaction simulation failed: {"Custom":1}`, err.Error())
}
